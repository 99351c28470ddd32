package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// WorkflowRule 工作流自动化规则
type WorkflowRule struct {
	BaseModel

	// 基本信息
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	IsActive    bool   `gorm:"default:true;index" json:"is_active"`

	// 适用范围（创建后不可修改）
	EntityType  string `gorm:"size:20;not null;index:idx_rule_scope" json:"entity_type"`   // issue/problem/change/request
	TriggerType string `gorm:"size:30;not null;index:idx_rule_scope" json:"trigger_type"` // on_create/on_update/on_status_change/on_assignment/scheduled

	// 条件与动作（JSONB存储）
	Conditions datatypes.JSON `gorm:"type:jsonb" json:"conditions"`
	Actions    datatypes.JSON `gorm:"type:jsonb;not null" json:"actions"`

	// 执行控制
	StopOnMatch    bool   `gorm:"default:false" json:"stop_on_match"`        // 命中后终止后续规则
	ExecutionOrder int    `gorm:"default:100;index" json:"execution_order"` // 同一事件内的评估顺序，数字越小越先评估
	CronExpr       string `gorm:"size:100" json:"cron_expr"`                // scheduled触发的cron表达式（6字段，含秒）

	// 审计
	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`
}

// TableName 指定表名
func (WorkflowRule) TableName() string {
	return "workflow_rules"
}

// WorkflowCondition 规则的IF条件子句
type WorkflowCondition struct {
	Field    string `json:"field"`    // 字段名（须在字段目录中）
	Operator string `json:"operator"` // 比较操作符
	Value    string `json:"value"`    // 比较值（is_empty/is_not_empty忽略）
	LogicOp  string `json:"logic_op"` // 与前一条子句的连接方式 and/or（首条忽略）
}

// WorkflowAction 规则的THEN动作
type WorkflowAction struct {
	Type       string            `json:"type"`       // 动作类型
	Parameters map[string]string `json:"parameters"` // 参数表，必填键由动作类型决定
	Order      int               `json:"order"`      // 执行顺序，保存时重排为0..n-1连续值
}

// GetConditions 反序列化条件列表
func (r *WorkflowRule) GetConditions() ([]WorkflowCondition, error) {
	if len(r.Conditions) == 0 {
		return []WorkflowCondition{}, nil
	}

	var conditions []WorkflowCondition
	err := json.Unmarshal(r.Conditions, &conditions)
	return conditions, err
}

// SetConditions 序列化条件列表
func (r *WorkflowRule) SetConditions(conditions []WorkflowCondition) error {
	if conditions == nil {
		conditions = []WorkflowCondition{}
	}

	data, err := json.Marshal(conditions)
	if err != nil {
		return err
	}
	r.Conditions = data
	return nil
}

// GetActions 反序列化动作列表
func (r *WorkflowRule) GetActions() ([]WorkflowAction, error) {
	if len(r.Actions) == 0 {
		return []WorkflowAction{}, nil
	}

	var actions []WorkflowAction
	err := json.Unmarshal(r.Actions, &actions)
	return actions, err
}

// SetActions 序列化动作列表
func (r *WorkflowRule) SetActions(actions []WorkflowAction) error {
	if actions == nil {
		actions = []WorkflowAction{}
	}

	data, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	r.Actions = data
	return nil
}

// 实体类型常量
const (
	EntityTypeIssue   = "issue"
	EntityTypeProblem = "problem"
	EntityTypeChange  = "change"
	EntityTypeRequest = "request"
)

// 触发类型常量
const (
	TriggerOnCreate       = "on_create"
	TriggerOnUpdate       = "on_update"
	TriggerOnStatusChange = "on_status_change"
	TriggerOnAssignment   = "on_assignment"
	TriggerScheduled      = "scheduled"
)

// 条件操作符常量
const (
	OperatorEquals      = "equals"
	OperatorNotEquals   = "not_equals"
	OperatorContains    = "contains"
	OperatorNotContains = "not_contains"
	OperatorStartsWith  = "starts_with"
	OperatorEndsWith    = "ends_with"
	OperatorGreaterThan = "greater_than"
	OperatorLessThan    = "less_than"
	OperatorIsEmpty     = "is_empty"
	OperatorIsNotEmpty  = "is_not_empty"
	OperatorInList      = "in_list"
	OperatorNotInList   = "not_in_list"
)

// 逻辑连接符常量
const (
	LogicOpAnd = "and"
	LogicOpOr  = "or"
)

// 动作类型常量
const (
	ActionSetField         = "set_field"
	ActionAssignToUser     = "assign_to_user"
	ActionAssignToGroup    = "assign_to_group"
	ActionChangeStatus     = "change_status"
	ActionChangePriority   = "change_priority"
	ActionAddComment       = "add_comment"
	ActionSendNotification = "send_notification"
	ActionSendEmail        = "send_email"
	ActionEscalate         = "escalate"
	ActionLinkToProblem    = "link_to_problem"
	ActionCreateTask       = "create_task"
)

// ValidEntityTypes 全部实体类型
var ValidEntityTypes = []string{
	EntityTypeIssue,
	EntityTypeProblem,
	EntityTypeChange,
	EntityTypeRequest,
}

// ValidTriggerTypes 全部触发类型
var ValidTriggerTypes = []string{
	TriggerOnCreate,
	TriggerOnUpdate,
	TriggerOnStatusChange,
	TriggerOnAssignment,
	TriggerScheduled,
}

// ValidOperators 全部条件操作符
var ValidOperators = []string{
	OperatorEquals,
	OperatorNotEquals,
	OperatorContains,
	OperatorNotContains,
	OperatorStartsWith,
	OperatorEndsWith,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorIsEmpty,
	OperatorIsNotEmpty,
	OperatorInList,
	OperatorNotInList,
}

// ActionParameterSpec 各动作类型的参数约束
type ActionParameterSpec struct {
	Required []string // 必填键
	Optional []string // 可选键
}

// ActionParameterSpecs 动作参数契约，保存规则时校验，而非执行时
var ActionParameterSpecs = map[string]ActionParameterSpec{
	ActionSetField:         {Required: []string{"field", "value"}},
	ActionAssignToUser:     {Required: []string{"user"}},
	ActionAssignToGroup:    {Required: []string{"group"}},
	ActionChangeStatus:     {Required: []string{"status"}},
	ActionChangePriority:   {Required: []string{"priority"}},
	ActionAddComment:       {Required: []string{"content"}},
	ActionSendNotification: {Required: []string{"message"}, Optional: []string{"channel"}},
	ActionSendEmail:        {Required: []string{"to"}, Optional: []string{"subject", "body"}},
	ActionEscalate:         {Optional: []string{"level"}},
	ActionLinkToProblem:    {Required: []string{"problem_id"}},
	ActionCreateTask:       {Required: []string{"title"}, Optional: []string{"assignee"}},
}
