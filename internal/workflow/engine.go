package workflow

import (
	"context"
	"fmt"
	"time"

	"firelater/internal/models"
	"firelater/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Engine 规则引擎：候选规则选取与逐条评估的编排
type Engine struct {
	db            *gorm.DB
	evaluator     *ConditionEvaluator
	dispatcher    *ActionDispatcher
	actionTimeout time.Duration
	logger        *logrus.Logger
}

// NewEngine 创建规则引擎
func NewEngine(db *gorm.DB, evaluator *ConditionEvaluator, dispatcher *ActionDispatcher, actionTimeout time.Duration) *Engine {
	if actionTimeout <= 0 {
		actionTimeout = 30 * time.Second
	}
	return &Engine{
		db:            db,
		evaluator:     evaluator,
		dispatcher:    dispatcher,
		actionTimeout: actionTimeout,
		logger:        logger.GetLogger(),
	}
}

// Handle 处理一次实体变更事件，返回本次产生的执行日志
//
// 候选规则为事件(实体类型, 触发类型)下的全部活跃规则，按execution_order
// 升序评估，开始时取一次快照，评估期间的规则编辑不影响本次运行。
// 每条被考虑的候选规则都写入一条执行日志（包括条件未命中的）。
// 命中且stop_on_match的规则终止循环，其后的候选不再评估也不再记日志。
// 单条规则的异常被隔离在该规则内，不影响兄弟规则的评估。
func (e *Engine) Handle(ctx context.Context, ev Event) []models.WorkflowExecutionLog {
	var rules []models.WorkflowRule
	err := e.db.Where("is_active = ? AND entity_type = ? AND trigger_type = ?",
		true, ev.EntityType, ev.TriggerType).
		Order("execution_order ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		e.logger.WithError(err).Errorf("查询候选规则失败: entity_type=%s trigger_type=%s", ev.EntityType, ev.TriggerType)
		return nil
	}

	entries := make([]models.WorkflowExecutionLog, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		entry := e.evaluateRule(ctx, rule, ev)

		// 执行日志为追加写，入库失败只记录不中断
		if err := e.db.Create(entry).Error; err != nil {
			e.logger.WithError(err).Errorf("写入执行日志失败: rule_id=%d", rule.ID)
		}
		entries = append(entries, *entry)

		if entry.Error != "" {
			e.logger.WithFields(logrus.Fields{
				"rule_id":     rule.ID,
				"rule_name":   rule.Name,
				"entity_type": ev.EntityType,
				"entity_id":   ev.EntityID,
			}).Warnf("规则执行异常: %s", entry.Error)
		}

		// 命中且stop_on_match时终止后续候选规则
		if entry.ConditionsMatched && rule.StopOnMatch {
			break
		}
	}

	return entries
}

// HandleRule 只评估指定规则并写入执行日志
//
// 定时触发场景使用：每条scheduled规则有自己的cron，触发只针对该规则，
// 不做候选选取，stop_on_match在此路径下没有意义。
func (e *Engine) HandleRule(ctx context.Context, rule *models.WorkflowRule, ev Event) *models.WorkflowExecutionLog {
	entry := e.evaluateRule(ctx, rule, ev)
	if err := e.db.Create(entry).Error; err != nil {
		e.logger.WithError(err).Errorf("写入执行日志失败: rule_id=%d", rule.ID)
	}
	return entry
}

// evaluateRule 评估单条规则并生成执行日志，panic在此边界收敛
func (e *Engine) evaluateRule(ctx context.Context, rule *models.WorkflowRule, ev Event) (entry *models.WorkflowExecutionLog) {
	start := time.Now()
	entry = &models.WorkflowExecutionLog{
		ID:         uuid.NewString(),
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		ExecutedAt: start,
	}

	defer func() {
		if r := recover(); r != nil {
			entry.Error = fmt.Sprintf("规则评估panic: %v", r)
		}
		entry.ExecutionTimeMs = time.Since(start).Milliseconds()
	}()

	conditions, err := rule.GetConditions()
	if err != nil {
		entry.Error = fmt.Sprintf("解析规则条件失败: %v", err)
		return entry
	}

	matched, evalErr := e.evaluator.Evaluate(ev.EntityType, conditions, ev.Entity)
	if evalErr != nil {
		// 配置错误：按未命中处理并记录错误，不执行动作
		entry.Error = evalErr.Error()
		return entry
	}

	entry.ConditionsMatched = matched
	if !matched {
		return entry
	}

	actions, err := rule.GetActions()
	if err != nil {
		entry.Error = fmt.Sprintf("解析规则动作失败: %v", err)
		return entry
	}

	// 动作委托外部I/O，加超时防止单条规则拖垮整个事件
	actionCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	applied, actErr := e.dispatcher.Execute(actionCtx, rule.ID, ev, actions)
	entry.ActionsExecuted = applied
	if actErr != nil {
		entry.Error = actErr.Error()
	}

	return entry
}
