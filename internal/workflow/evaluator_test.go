package workflow

import (
	"testing"

	"firelater/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity() map[string]interface{} {
	return map[string]interface{}{
		"title":            "数据库连接超时",
		"description":      "生产库连接池耗尽",
		"status":           "open",
		"priority":         "high",
		"category":         "数据库",
		"service":          "订单服务",
		"source":           "monitoring",
		"reporter":         "zhangsan",
		"assignee":         "",
		"group":            "dba",
		"escalation_level": "2",
		"tags":             "db,prod",
	}
}

func TestEvaluateEmptyConditionsAlwaysMatch(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())

	matched, err := evaluator.Evaluate(models.EntityTypeIssue, nil, testEntity())
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{}, testEntity())
	require.NoError(t, err)
	assert.True(t, matched)
}

// 子句从左到右折叠，没有运算符优先级：
// "true OR false AND false" 左折叠为 (true OR false) AND false = false，
// 若and优先则是 true OR (false AND false) = true，以此区分两种实现。
func TestEvaluateLeftToRightFold(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())
	entity := testEntity()

	conditions := []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"},                             // true
		{Field: "priority", Operator: models.OperatorEquals, Value: "low", LogicOp: models.LogicOpOr}, // false
		{Field: "status", Operator: models.OperatorEquals, Value: "closed", LogicOp: models.LogicOpAnd}, // false
	}

	// (true OR false) AND false = false；若and先算: true OR (false AND false) = true
	matched, err := evaluator.Evaluate(models.EntityTypeIssue, conditions, entity)
	require.NoError(t, err)
	assert.False(t, matched)

	conditions = []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals, Value: "closed"},                              // false
		{Field: "priority", Operator: models.OperatorEquals, Value: "high", LogicOp: models.LogicOpAnd}, // true
		{Field: "source", Operator: models.OperatorEquals, Value: "monitoring", LogicOp: models.LogicOpOr}, // true
	}

	// (false AND true) OR true = true
	matched, err = evaluator.Evaluate(models.EntityTypeIssue, conditions, entity)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvaluateStringOperators(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())
	entity := testEntity()

	cases := []struct {
		name     string
		cond     models.WorkflowCondition
		expected bool
	}{
		{"equals命中", models.WorkflowCondition{Field: "status", Operator: models.OperatorEquals, Value: "open"}, true},
		{"equals未命中", models.WorkflowCondition{Field: "status", Operator: models.OperatorEquals, Value: "closed"}, false},
		{"not_equals", models.WorkflowCondition{Field: "status", Operator: models.OperatorNotEquals, Value: "closed"}, true},
		{"contains", models.WorkflowCondition{Field: "title", Operator: models.OperatorContains, Value: "连接"}, true},
		{"not_contains", models.WorkflowCondition{Field: "title", Operator: models.OperatorNotContains, Value: "网络"}, true},
		{"starts_with", models.WorkflowCondition{Field: "title", Operator: models.OperatorStartsWith, Value: "数据库"}, true},
		{"ends_with", models.WorkflowCondition{Field: "title", Operator: models.OperatorEndsWith, Value: "超时"}, true},
		{"in_list命中", models.WorkflowCondition{Field: "priority", Operator: models.OperatorInList, Value: "critical, high"}, true},
		{"in_list未命中", models.WorkflowCondition{Field: "priority", Operator: models.OperatorInList, Value: "low,medium"}, false},
		{"not_in_list", models.WorkflowCondition{Field: "priority", Operator: models.OperatorNotInList, Value: "low,medium"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			matched, err := evaluator.Evaluate(models.EntityTypeIssue,
				[]models.WorkflowCondition{tc.cond}, entity)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, matched)
		})
	}
}

func TestEvaluateNumericOperators(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())
	entity := testEntity()

	matched, err := evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "escalation_level", Operator: models.OperatorGreaterThan, Value: "1"},
	}, entity)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "escalation_level", Operator: models.OperatorLessThan, Value: "2"},
	}, entity)
	require.NoError(t, err)
	assert.False(t, matched)

	// 任一侧不是数字按未命中处理，不报错
	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorGreaterThan, Value: "1"},
	}, entity)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateEmptinessOperators(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())
	entity := testEntity()

	// assignee为空字符串
	matched, err := evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "assignee", Operator: models.OperatorIsEmpty},
	}, entity)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "assignee", Operator: models.OperatorIsNotEmpty},
	}, entity)
	require.NoError(t, err)
	assert.False(t, matched)

	// 快照中完全缺失的字段同样视为空
	delete(entity, "assignee")
	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "assignee", Operator: models.OperatorIsEmpty},
	}, entity)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "group", Operator: models.OperatorIsNotEmpty},
	}, entity)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvaluateUnknownFieldIsConfigError(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())

	matched, err := evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "no_such_field", Operator: models.OperatorEquals, Value: "x"},
	}, testEntity())
	require.Error(t, err)
	assert.False(t, matched)

	// problem类型没有linked_problem_id字段
	matched, err = evaluator.Evaluate(models.EntityTypeProblem, []models.WorkflowCondition{
		{Field: "linked_problem_id", Operator: models.OperatorIsNotEmpty},
	}, testEntity())
	require.Error(t, err)
	assert.False(t, matched)
}

func TestEvaluateUnknownOperatorIsConfigError(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())

	matched, err := evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "status", Operator: "matches_regex", Value: "op.*"},
	}, testEntity())
	require.Error(t, err)
	assert.False(t, matched)
}

// 配置错误的子句按false参与折叠，但整体结果固定按未命中返回
func TestEvaluateConfigErrorOverridesMatch(t *testing.T) {
	evaluator := NewConditionEvaluator(NewFieldRegistry())

	matched, err := evaluator.Evaluate(models.EntityTypeIssue, []models.WorkflowCondition{
		{Field: "status", Operator: models.OperatorEquals, Value: "open"}, // true
		{Field: "bogus", Operator: models.OperatorEquals, Value: "x", LogicOp: models.LogicOpOr},
	}, testEntity())
	require.Error(t, err)
	assert.False(t, matched)
}
