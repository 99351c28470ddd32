package models

import (
	"time"
)

// WorkflowExecutionLog 规则执行日志（追加写，创建后不可修改）
//
// 事件评估的每一条候选规则都会产生一条记录，包括条件未命中的规则，
// 以便审计区分"条件未命中被跳过"与"从未被评估"。
// 规则删除后日志保留，RuleName为执行当时的名称快照。
type WorkflowExecutionLog struct {
	ID       string `gorm:"primarykey;size:36" json:"id"` // UUID
	RuleID   uint   `gorm:"not null;index:idx_exec_rule_time" json:"rule_id"`
	RuleName string `gorm:"size:200;not null" json:"rule_name"`

	// 触发实体
	EntityType string `gorm:"size:20;not null;index" json:"entity_type"`
	EntityID   uint   `gorm:"not null;index" json:"entity_id"`

	// 评估结果
	ConditionsMatched bool   `json:"conditions_matched"`
	ActionsExecuted   int    `gorm:"default:0" json:"actions_executed"`      // 成功执行的动作数
	ExecutionTimeMs   int64  `json:"execution_time_ms"`                      // 执行耗时（毫秒）
	Error             string `gorm:"type:text" json:"error,omitempty"`       // 配置错误/动作失败/内部异常

	ExecutedAt time.Time `gorm:"not null;index:idx_exec_rule_time" json:"executed_at"`
}

// TableName 指定表名
func (WorkflowExecutionLog) TableName() string {
	return "workflow_execution_logs"
}
