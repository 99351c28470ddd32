package services

import (
	"fmt"
	"testing"

	"firelater/internal/models"
	"firelater/internal/workflow"
	"firelater/pkg/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.WorkflowRule{},
		&models.WorkflowExecutionLog{},
		&models.Ticket{},
		&models.TicketComment{},
		&models.TicketTask{},
	))
	return db
}

func newRuleService(t *testing.T) *WorkflowRuleService {
	t.Helper()
	return NewWorkflowRuleService(newTestDB(t), workflow.NewFieldRegistry())
}

func validRuleRequest() CreateWorkflowRuleRequest {
	return CreateWorkflowRuleRequest{
		Name:        "高优先级自动指派",
		EntityType:  models.EntityTypeIssue,
		TriggerType: models.TriggerOnCreate,
		Conditions: []models.WorkflowCondition{
			{Field: "priority", Operator: models.OperatorEquals, Value: "high"},
		},
		Actions: []models.WorkflowAction{
			{Type: models.ActionAssignToGroup, Parameters: map[string]string{"group": "sre"}, Order: 0},
		},
	}
}

func TestRuleCreateAndGet(t *testing.T) {
	svc := newRuleService(t)

	rule, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 100, rule.ExecutionOrder)

	loaded, err := svc.GetByID(rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "高优先级自动指派", loaded.Name)

	conditions, err := loaded.GetConditions()
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.Equal(t, "priority", conditions[0].Field)
}

func TestRuleCreateRejectsActiveWithoutActions(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Actions = nil
	_, err := svc.Create(req, 1)
	require.Error(t, err)

	// 停用状态下允许没有动作（草稿）
	inactive := false
	req.IsActive = &inactive
	rule, err := svc.Create(req, 1)
	require.NoError(t, err)
	assert.False(t, rule.IsActive)
}

func TestRuleCreateRejectsUnknownConditionField(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Conditions = []models.WorkflowCondition{
		{Field: "cpu_usage", Operator: models.OperatorGreaterThan, Value: "90"},
	}
	_, err := svc.Create(req, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cpu_usage")
}

func TestRuleCreateRejectsInvalidOperator(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Conditions = []models.WorkflowCondition{
		{Field: "status", Operator: "regex", Value: ".*"},
	}
	_, err := svc.Create(req, 1)
	require.Error(t, err)
}

func TestRuleCreateRejectsMissingConditionValue(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Conditions = []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals},
	}
	_, err := svc.Create(req, 1)
	require.Error(t, err)

	// is_empty不需要比较值
	req.Conditions = []models.WorkflowCondition{
		{Field: "assignee", Operator: models.OperatorIsEmpty},
	}
	_, err = svc.Create(req, 1)
	require.NoError(t, err)
}

func TestRuleCreateRejectsBadLogicOp(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Conditions = []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
		{Field: "priority", Operator: models.OperatorEquals, Value: "high", LogicOp: "xor"},
	}
	_, err := svc.Create(req, 1)
	require.Error(t, err)
}

func TestRuleCreateValidatesActionParameters(t *testing.T) {
	svc := newRuleService(t)

	// 缺必填参数
	req := validRuleRequest()
	req.Actions = []models.WorkflowAction{
		{Type: models.ActionSetField, Parameters: map[string]string{"field": "category"}, Order: 0},
	}
	_, err := svc.Create(req, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")

	// 未知参数键
	req.Actions = []models.WorkflowAction{
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "ok", "color": "red"}, Order: 0},
	}
	_, err = svc.Create(req, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "color")

	// 未知动作类型
	req.Actions = []models.WorkflowAction{
		{Type: "reboot_server", Order: 0},
	}
	_, err = svc.Create(req, 1)
	require.Error(t, err)

	// escalate全部参数可选
	req.Actions = []models.WorkflowAction{
		{Type: models.ActionEscalate, Order: 0},
	}
	_, err = svc.Create(req, 1)
	require.NoError(t, err)
}

func TestRuleCreateRenumbersActionOrder(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.Actions = []models.WorkflowAction{
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "third"}, Order: 30},
		{Type: models.ActionChangePriority, Parameters: map[string]string{"priority": "high"}, Order: 5},
		{Type: models.ActionAssignToGroup, Parameters: map[string]string{"group": "sre"}, Order: 12},
	}

	rule, err := svc.Create(req, 1)
	require.NoError(t, err)

	actions, err := rule.GetActions()
	require.NoError(t, err)
	require.Len(t, actions, 3)
	// 按给定order排序后重排为0..n-1
	assert.Equal(t, models.ActionChangePriority, actions[0].Type)
	assert.Equal(t, 0, actions[0].Order)
	assert.Equal(t, models.ActionAssignToGroup, actions[1].Type)
	assert.Equal(t, 1, actions[1].Order)
	assert.Equal(t, models.ActionAddComment, actions[2].Type)
	assert.Equal(t, 2, actions[2].Order)
}

func TestRuleScheduledRequiresCron(t *testing.T) {
	svc := newRuleService(t)

	req := validRuleRequest()
	req.TriggerType = models.TriggerScheduled
	_, err := svc.Create(req, 1)
	require.Error(t, err)

	req.CronExpr = "not valid"
	_, err = svc.Create(req, 1)
	require.Error(t, err)

	req.CronExpr = "0 */5 * * * *"
	rule, err := svc.Create(req, 1)
	require.NoError(t, err)
	assert.Equal(t, "0 */5 * * * *", rule.CronExpr)

	// 非scheduled触发不接受cron
	req = validRuleRequest()
	req.CronExpr = "0 */5 * * * *"
	_, err = svc.Create(req, 1)
	require.Error(t, err)
}

func TestRuleUpdateKeepsScopeImmutable(t *testing.T) {
	svc := newRuleService(t)

	rule, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)

	name := "改名后的规则"
	updated, err := svc.Update(rule.ID, UpdateWorkflowRuleRequest{Name: name}, 2)
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	// 适用范围不随更新变化
	assert.Equal(t, models.EntityTypeIssue, updated.EntityType)
	assert.Equal(t, models.TriggerOnCreate, updated.TriggerType)
	assert.Equal(t, uint(2), updated.UpdatedBy)
}

func TestRuleUpdateRejectsEmptyActionsWhileActive(t *testing.T) {
	svc := newRuleService(t)

	rule, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)

	empty := []models.WorkflowAction{}
	_, err = svc.Update(rule.ID, UpdateWorkflowRuleRequest{Actions: &empty}, 1)
	require.Error(t, err)

	// 先停用则可以清空动作
	inactive := false
	_, err = svc.Update(rule.ID, UpdateWorkflowRuleRequest{IsActive: &inactive, Actions: &empty}, 1)
	require.NoError(t, err)
}

func TestRuleToggle(t *testing.T) {
	svc := newRuleService(t)

	rule, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)

	disabled, err := svc.SetActive(rule.ID, false, 1)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)

	enabled, err := svc.SetActive(rule.ID, true, 1)
	require.NoError(t, err)
	assert.True(t, enabled.IsActive)
}

func TestRuleEnableRejectsWithoutActions(t *testing.T) {
	svc := newRuleService(t)

	inactive := false
	req := validRuleRequest()
	req.IsActive = &inactive
	req.Actions = nil

	rule, err := svc.Create(req, 1)
	require.NoError(t, err)

	_, err = svc.SetActive(rule.ID, true, 1)
	require.Error(t, err)
}

func TestRuleListFilters(t *testing.T) {
	svc := newRuleService(t)

	_, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)

	req := validRuleRequest()
	req.Name = "变更审批提醒"
	req.EntityType = models.EntityTypeChange
	_, err = svc.Create(req, 1)
	require.NoError(t, err)

	params := &pagination.PageParams{Page: 1, PageSize: 10}
	rules, total, err := svc.List(params, WorkflowRuleListFilter{EntityType: models.EntityTypeChange})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rules, 1)
	assert.Equal(t, "变更审批提醒", rules[0].Name)
}

func TestRuleDelete(t *testing.T) {
	svc := newRuleService(t)

	rule, err := svc.Create(validRuleRequest(), 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(rule.ID))
	_, err = svc.GetByID(rule.ID)
	require.Error(t, err)
}
