package workflow

import (
	"fmt"
	"strings"

	"firelater/internal/models"
)

// Field 可用于条件的字段及其展示名
type Field struct {
	Name  string `json:"field"`
	Label string `json:"label"`
}

// FieldRegistry 字段目录：实体类型到可查询字段的映射
//
// 规则条件只能引用目录内的字段，保存和评估两处都以此为准。
type FieldRegistry struct {
	catalog map[string][]Field
	index   map[string]map[string]bool
}

// 各实体类型共有的字段
var commonFields = []Field{
	{Name: "title", Label: "标题"},
	{Name: "description", Label: "描述"},
	{Name: "status", Label: "状态"},
	{Name: "priority", Label: "优先级"},
	{Name: "category", Label: "分类"},
	{Name: "service", Label: "影响服务"},
	{Name: "source", Label: "来源"},
	{Name: "reporter", Label: "报告人"},
	{Name: "assignee", Label: "处理人"},
	{Name: "group", Label: "处理组"},
	{Name: "escalation_level", Label: "升级级别"},
	{Name: "tags", Label: "标签"},
}

// NewFieldRegistry 创建内置字段目录
func NewFieldRegistry() *FieldRegistry {
	catalog := map[string][]Field{
		models.EntityTypeIssue: append(append([]Field{}, commonFields...),
			Field{Name: "linked_problem_id", Label: "关联问题"},
		),
		models.EntityTypeProblem: append([]Field{}, commonFields...),
		models.EntityTypeChange:  append([]Field{}, commonFields...),
		models.EntityTypeRequest: append([]Field{}, commonFields...),
	}

	index := make(map[string]map[string]bool, len(catalog))
	for entityType, fields := range catalog {
		index[entityType] = make(map[string]bool, len(fields))
		for _, f := range fields {
			index[entityType][f.Name] = true
		}
	}

	return &FieldRegistry{catalog: catalog, index: index}
}

// Fields 返回实体类型的有序字段列表
func (r *FieldRegistry) Fields(entityType string) ([]Field, error) {
	fields, ok := r.catalog[entityType]
	if !ok {
		return nil, fmt.Errorf("未知的实体类型: %s", entityType)
	}
	return fields, nil
}

// Has 字段是否在目录中
func (r *FieldRegistry) Has(entityType, field string) bool {
	fields, ok := r.index[entityType]
	if !ok {
		return false
	}
	return fields[field]
}

// Resolve 从快照解析字段的字符串值，第二个返回值表示字段是否存在且非空值
func (r *FieldRegistry) Resolve(entity map[string]interface{}, field string) (string, bool) {
	raw, ok := entity[field]
	if !ok || raw == nil {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return v, true
	case []interface{}:
		// 数组转换为逗号分隔的字符串
		items := make([]string, 0, len(v))
		for _, item := range v {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return strings.Join(items, ","), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}
