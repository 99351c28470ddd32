package services

import (
	"time"

	"firelater/internal/models"
	"firelater/pkg/config"

	"gorm.io/gorm"
)

// WorkflowExecutionLogService 工作流执行日志服务（只读，日志由引擎追加）
type WorkflowExecutionLogService struct {
	db *gorm.DB
}

// NewWorkflowExecutionLogService 创建执行日志服务
func NewWorkflowExecutionLogService(db *gorm.DB) *WorkflowExecutionLogService {
	return &WorkflowExecutionLogService{db: db}
}

// ExecutionLogFilter 执行日志查询条件
type ExecutionLogFilter struct {
	RuleID     uint
	EntityType string
	EntityID   uint
	Limit      int
}

// List 最近的执行日志，按执行时间倒序
func (s *WorkflowExecutionLogService) List(filter ExecutionLogFilter) ([]models.WorkflowExecutionLog, error) {
	cfg := config.GetConfig()
	limit := filter.Limit
	if limit <= 0 {
		limit = cfg.Workflow.ExecutionLogLimit
	}
	if limit > cfg.Workflow.ExecutionLogMaxLimit {
		limit = cfg.Workflow.ExecutionLogMaxLimit
	}

	query := s.db.Model(&models.WorkflowExecutionLog{})
	if filter.RuleID != 0 {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != 0 {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	var logs []models.WorkflowExecutionLog
	err := query.Order("executed_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// LatestExecutedAt 最新一条日志的执行时间（WebSocket推送起点）
func (s *WorkflowExecutionLogService) LatestExecutedAt(entityType string) (time.Time, error) {
	var log models.WorkflowExecutionLog
	query := s.db.Model(&models.WorkflowExecutionLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	err := query.Order("executed_at DESC").First(&log).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return log.ExecutedAt, nil
}

// ListAfter 指定时间之后新增的日志，按执行时间升序（WebSocket增量推送）
func (s *WorkflowExecutionLogService) ListAfter(entityType string, after time.Time, limit int) ([]models.WorkflowExecutionLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.db.Model(&models.WorkflowExecutionLog{})
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	var logs []models.WorkflowExecutionLog
	err := query.Where("executed_at > ?", after).
		Order("executed_at ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
