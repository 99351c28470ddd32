package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"firelater/internal/models"
)

// ConditionEvaluator 条件评估器
type ConditionEvaluator struct {
	registry *FieldRegistry
}

// NewConditionEvaluator 创建条件评估器
func NewConditionEvaluator(registry *FieldRegistry) *ConditionEvaluator {
	return &ConditionEvaluator{registry: registry}
}

// Evaluate 评估条件列表
//
// 子句严格按声明顺序从左到右折叠，and/or依次作用于累计结果，
// 没有运算符优先级："A and B or C" 等价于 "(A and B) or C"。
// 这是规则语义的一部分，不能改为and优先。
// 空条件列表恒为命中。
// 条件引用了字段目录之外的字段属于配置错误：返回错误，整条规则按未命中处理。
func (e *ConditionEvaluator) Evaluate(entityType string, conditions []models.WorkflowCondition, entity map[string]interface{}) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}

	var configErr error
	result := e.evaluateSingle(entityType, conditions[0], entity, &configErr)

	for i := 1; i < len(conditions); i++ {
		cond := conditions[i]
		clauseResult := e.evaluateSingle(entityType, cond, entity, &configErr)

		if strings.EqualFold(cond.LogicOp, models.LogicOpOr) {
			result = result || clauseResult
		} else {
			result = result && clauseResult
		}
	}

	if configErr != nil {
		return false, configErr
	}
	return result, nil
}

// evaluateSingle 评估单个条件子句，目录外字段记录配置错误并按false处理
func (e *ConditionEvaluator) evaluateSingle(entityType string, cond models.WorkflowCondition, entity map[string]interface{}, configErr *error) bool {
	if !e.registry.Has(entityType, cond.Field) {
		if *configErr == nil {
			*configErr = fmt.Errorf("条件引用了 %s 类型不存在的字段: %s", entityType, cond.Field)
		}
		return false
	}

	value, present := e.registry.Resolve(entity, cond.Field)

	switch cond.Operator {
	case models.OperatorEquals:
		return value == cond.Value
	case models.OperatorNotEquals:
		return value != cond.Value
	case models.OperatorContains:
		return strings.Contains(value, cond.Value)
	case models.OperatorNotContains:
		return !strings.Contains(value, cond.Value)
	case models.OperatorStartsWith:
		return strings.HasPrefix(value, cond.Value)
	case models.OperatorEndsWith:
		return strings.HasSuffix(value, cond.Value)
	case models.OperatorGreaterThan:
		left, right, ok := parseNumbers(value, cond.Value)
		return ok && left > right
	case models.OperatorLessThan:
		left, right, ok := parseNumbers(value, cond.Value)
		return ok && left < right
	case models.OperatorIsEmpty:
		return !present || value == ""
	case models.OperatorIsNotEmpty:
		return present && value != ""
	case models.OperatorInList:
		return inList(value, cond.Value)
	case models.OperatorNotInList:
		return !inList(value, cond.Value)
	default:
		if *configErr == nil {
			*configErr = fmt.Errorf("未知的条件操作符: %s", cond.Operator)
		}
		return false
	}
}

// parseNumbers 两侧都能解析为数字时才进行数值比较，否则按未命中处理
func parseNumbers(left, right string) (float64, float64, bool) {
	l, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, false
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}

// inList 条件值按逗号分隔解释为集合，检查字段值是否为其成员
func inList(value, listValue string) bool {
	for _, item := range strings.Split(listValue, ",") {
		if strings.TrimSpace(item) == value {
			return true
		}
	}
	return false
}
