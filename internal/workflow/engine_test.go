package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"firelater/internal/models"

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

func newTestEngine(t *testing.T, db *gorm.DB, mutator TicketMutator, notifier Notifier) *Engine {
	t.Helper()
	registry := NewFieldRegistry()
	return NewEngine(db, NewConditionEvaluator(registry), NewActionDispatcher(mutator, notifier), 5*time.Second)
}

// mustCreateRule 建规则的测试辅助
func mustCreateRule(t *testing.T, db *gorm.DB, rule *models.WorkflowRule,
	conditions []models.WorkflowCondition, actions []models.WorkflowAction) *models.WorkflowRule {
	t.Helper()

	require.NoError(t, rule.SetConditions(conditions))
	require.NoError(t, rule.SetActions(actions))
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func commentAction() []models.WorkflowAction {
	return []models.WorkflowAction{
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "自动处理"}, Order: 0},
	}
}

func TestEngineLogsEveryCandidate(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})

	// 一条命中、一条未命中，都应有执行日志
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "高优先级提醒", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 1,
	}, []models.WorkflowCondition{
		{Field: "priority", Operator: models.OperatorEquals, Value: "high"},
	}, commentAction())

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "低优先级归档", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 2,
	}, []models.WorkflowCondition{
		{Field: "priority", Operator: models.OperatorEquals, Value: "low"},
	}, commentAction())

	entries := engine.Handle(context.Background(), testEvent())
	require.Len(t, entries, 2)
	assert.True(t, entries[0].ConditionsMatched)
	assert.Equal(t, 1, entries[0].ActionsExecuted)
	assert.False(t, entries[1].ConditionsMatched)
	assert.Equal(t, 0, entries[1].ActionsExecuted)

	var count int64
	require.NoError(t, db.Model(&models.WorkflowExecutionLog{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestEngineInactiveAndScopeFiltered(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})

	// 停用规则、其他实体类型、其他触发类型都不是候选
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "停用规则", IsActive: false,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
	}, nil, commentAction())
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "变更规则", IsActive: true,
		EntityType: models.EntityTypeChange, TriggerType: models.TriggerOnCreate,
	}, nil, commentAction())
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "更新触发", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnUpdate,
	}, nil, commentAction())

	entries := engine.Handle(context.Background(), testEvent())
	assert.Empty(t, entries)
}

func TestEngineStopOnMatchSuppressesLaterRules(t *testing.T) {
	db := newTestDB(t)
	mutator := &fakeMutator{}
	engine := newTestEngine(t, db, mutator, &fakeNotifier{})

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "R1", IsActive: true, StopOnMatch: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 1,
	}, nil, commentAction())

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "R2", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 2,
	}, nil, commentAction())

	// R1命中且stop_on_match，R2不评估也不记日志
	entries := engine.Handle(context.Background(), testEvent())
	require.Len(t, entries, 1)
	assert.Equal(t, "R1", entries[0].RuleName)
	assert.Len(t, mutator.calls, 1)

	var count int64
	require.NoError(t, db.Model(&models.WorkflowExecutionLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestEngineStopOnMatchIgnoredWhenNotMatched(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})

	// stop_on_match规则未命中时不拦截后续规则
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "R1", IsActive: true, StopOnMatch: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 1,
	}, []models.WorkflowCondition{
		{Field: "priority", Operator: models.OperatorEquals, Value: "low"},
	}, commentAction())

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "R2", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 2,
	}, nil, commentAction())

	entries := engine.Handle(context.Background(), testEvent())
	require.Len(t, entries, 2)
	assert.False(t, entries[0].ConditionsMatched)
	assert.True(t, entries[1].ConditionsMatched)
}

func TestEngineConfigErrorIsolatedPerRule(t *testing.T) {
	db := newTestDB(t)
	mutator := &fakeMutator{}
	engine := newTestEngine(t, db, mutator, &fakeNotifier{})

	// 条件引用不存在的字段：按未命中记录错误，不执行动作，不影响兄弟规则
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "坏规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 1,
	}, []models.WorkflowCondition{
		{Field: "no_such_field", Operator: models.OperatorEquals, Value: "x"},
	}, commentAction())

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "好规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 2,
	}, nil, commentAction())

	entries := engine.Handle(context.Background(), testEvent())
	require.Len(t, entries, 2)

	assert.False(t, entries[0].ConditionsMatched)
	assert.NotEmpty(t, entries[0].Error)
	assert.Equal(t, 0, entries[0].ActionsExecuted)

	assert.True(t, entries[1].ConditionsMatched)
	assert.Empty(t, entries[1].Error)
	assert.Equal(t, 1, entries[1].ActionsExecuted)
}

func TestEngineActionFailureAbortsRemainingActions(t *testing.T) {
	db := newTestDB(t)
	mutator := &fakeMutator{failOn: "assign_to_group:dba"}
	engine := newTestEngine(t, db, mutator, &fakeNotifier{})

	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "多动作规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 1,
	}, nil, []models.WorkflowAction{
		{Type: models.ActionChangePriority, Parameters: map[string]string{"priority": "critical"}, Order: 0},
		{Type: models.ActionAssignToGroup, Parameters: map[string]string{"group": "dba"}, Order: 1},
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "done"}, Order: 2},
	})

	// 失败规则之后的规则照常评估
	mustCreateRule(t, db, &models.WorkflowRule{
		Name: "后续规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
		ExecutionOrder: 2,
	}, nil, commentAction())

	entries := engine.Handle(context.Background(), testEvent())
	require.Len(t, entries, 2)

	assert.True(t, entries[0].ConditionsMatched)
	assert.Equal(t, 1, entries[0].ActionsExecuted)
	assert.NotEmpty(t, entries[0].Error)

	assert.True(t, entries[1].ConditionsMatched)
	assert.Empty(t, entries[1].Error)
}

func TestEngineRuleNameSurvivesRuleDeletion(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})

	rule := mustCreateRule(t, db, &models.WorkflowRule{
		Name: "将被删除的规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
	}, nil, commentAction())

	engine.Handle(context.Background(), testEvent())

	require.NoError(t, db.Delete(&models.WorkflowRule{}, rule.ID).Error)

	var log models.WorkflowExecutionLog
	require.NoError(t, db.Where("rule_id = ?", rule.ID).First(&log).Error)
	assert.Equal(t, "将被删除的规则", log.RuleName)
	assert.NotZero(t, log.ExecutedAt)
}

func TestEngineHandleRuleSingle(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})

	rule := mustCreateRule(t, db, &models.WorkflowRule{
		Name: "定时规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerScheduled,
		CronExpr: "0 * * * * *",
	}, []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},
	}, commentAction())

	ev := Event{
		EntityType:  models.EntityTypeIssue,
		TriggerType: models.TriggerScheduled,
		EntityID:    7,
		Entity:      testEntity(),
	}

	entry := engine.HandleRule(context.Background(), rule, ev)
	require.NotNil(t, entry)
	assert.True(t, entry.ConditionsMatched)
	assert.Equal(t, 1, entry.ActionsExecuted)

	var count int64
	require.NoError(t, db.Model(&models.WorkflowExecutionLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
