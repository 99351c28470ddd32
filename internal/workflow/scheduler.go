package workflow

import (
	"context"
	"fmt"
	"sync"

	"firelater/internal/models"
	"firelater/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Scheduler scheduled触发类型的规则调度器
//
// 每条活跃的scheduled规则对应一个cron任务；触发时对该规则实体类型下
// 所有未关闭的工单逐个跑一次评估。
type Scheduler struct {
	db        *gorm.DB
	engine    *Engine
	cron      *cron.Cron
	entries   map[uint]cron.EntryID // ruleID -> cron任务ID
	mu        sync.Mutex
	logger    *logrus.Logger
	isRunning bool
}

// NewScheduler 创建调度器
func NewScheduler(db *gorm.DB, engine *Engine) *Scheduler {
	return &Scheduler{
		db:      db,
		engine:  engine,
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[uint]cron.EntryID),
		logger:  logger.GetLogger(),
	}
}

// 全局调度器实例
var (
	globalScheduler   *Scheduler
	globalSchedulerMu sync.RWMutex
)

// SetGlobalScheduler 设置全局调度器
func SetGlobalScheduler(s *Scheduler) {
	globalSchedulerMu.Lock()
	defer globalSchedulerMu.Unlock()
	globalScheduler = s
}

// GetGlobalScheduler 获取全局调度器
func GetGlobalScheduler() *Scheduler {
	globalSchedulerMu.RLock()
	defer globalSchedulerMu.RUnlock()
	return globalScheduler
}

// ValidateCronExpr 验证cron表达式（6字段，含秒）
func ValidateCronExpr(expr string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(expr)
	return err
}

// Start 启动调度器并加载全部活跃的scheduled规则
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("调度器已经在运行")
	}

	var rules []models.WorkflowRule
	err := s.db.Where("is_active = ? AND trigger_type = ?", true, models.TriggerScheduled).
		Find(&rules).Error
	if err != nil {
		return fmt.Errorf("加载定时规则失败: %v", err)
	}

	for i := range rules {
		if err := s.scheduleLocked(&rules[i]); err != nil {
			s.logger.WithError(err).Errorf("调度规则 %d 失败", rules[i].ID)
		}
	}

	s.cron.Start()
	s.isRunning = true

	s.logger.Infof("工作流定时调度器启动成功，已加载 %d 个定时规则", len(s.entries))
	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.logger.Info("停止工作流定时调度器")
	s.cron.Stop()
	s.isRunning = false
	s.entries = make(map[uint]cron.EntryID)
}

// RefreshRule 规则创建/更新/启停后同步调度状态
func (s *Scheduler) RefreshRule(ruleID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rule models.WorkflowRule
	if err := s.db.First(&rule, ruleID).Error; err != nil {
		// 规则已删除则移除调度
		s.removeLocked(ruleID)
		return nil
	}

	if !rule.IsActive || rule.TriggerType != models.TriggerScheduled {
		s.removeLocked(ruleID)
		return nil
	}

	return s.scheduleLocked(&rule)
}

// RemoveRule 移除规则的调度
func (s *Scheduler) RemoveRule(ruleID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(ruleID)
}

// scheduleLocked 调度单条规则（调用方持锁）
func (s *Scheduler) scheduleLocked(rule *models.WorkflowRule) error {
	if rule.CronExpr == "" {
		return fmt.Errorf("规则 %d 缺少cron表达式", rule.ID)
	}

	// 已调度则先移除旧任务
	s.removeLocked(rule.ID)

	ruleID := rule.ID
	entryID, err := s.cron.AddFunc(rule.CronExpr, func() {
		s.fireRule(ruleID)
	})
	if err != nil {
		return fmt.Errorf("cron表达式无效: %v", err)
	}

	s.entries[rule.ID] = entryID
	return nil
}

// removeLocked 移除调度任务（调用方持锁）
func (s *Scheduler) removeLocked(ruleID uint) {
	if entryID, exists := s.entries[ruleID]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, ruleID)
	}
}

// fireRule 定时触发：对规则实体类型下所有未关闭工单逐个评估
func (s *Scheduler) fireRule(ruleID uint) {
	var rule models.WorkflowRule
	if err := s.db.First(&rule, ruleID).Error; err != nil {
		s.logger.WithError(err).Errorf("定时触发时规则 %d 不存在", ruleID)
		return
	}
	if !rule.IsActive {
		return
	}

	var tickets []models.Ticket
	err := s.db.Where("type = ? AND status NOT IN ?",
		rule.EntityType, []string{models.TicketStatusResolved, models.TicketStatusClosed}).
		Find(&tickets).Error
	if err != nil {
		s.logger.WithError(err).Errorf("定时规则 %d 查询工单失败", ruleID)
		return
	}

	s.logger.Infof("定时规则 %d (%s) 触发，待评估工单 %d 个", rule.ID, rule.Name, len(tickets))

	ctx := context.Background()
	for i := range tickets {
		ev := TicketEvent(&tickets[i], models.TriggerScheduled)
		s.engine.HandleRule(ctx, &rule, ev)
	}
}

// ScheduledRuleCount 当前已调度的规则数量
func (s *Scheduler) ScheduledRuleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
