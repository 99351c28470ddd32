package workflow

import (
	"encoding/json"
	"strconv"
	"strings"

	"firelater/internal/models"
)

// Event 实体变更事件，规则引擎的输入
type Event struct {
	EntityType  string                 `json:"entity_type"`
	TriggerType string                 `json:"trigger_type"`
	EntityID    uint                   `json:"entity_id"`
	Entity      map[string]interface{} `json:"entity"` // 评估时刻的字段快照
}

// TicketSnapshot 构建工单的字段快照
//
// 快照在事件产生时固定，评估过程中不回读数据库，
// 避免并发修改导致同一事件内条件评估口径不一致。
func TicketSnapshot(t *models.Ticket) map[string]interface{} {
	snapshot := map[string]interface{}{
		"title":            t.Title,
		"description":      t.Description,
		"status":           t.Status,
		"priority":         t.Priority,
		"category":         t.Category,
		"service":          t.Service,
		"source":           t.Source,
		"reporter":         t.Reporter,
		"assignee":         t.Assignee,
		"group":            t.AssignedGroup,
		"escalation_level": strconv.Itoa(t.EscalationLevel),
		"tags":             strings.Join(t.Tags, ","),
	}

	if t.LinkedProblemID != nil {
		snapshot["linked_problem_id"] = strconv.FormatUint(uint64(*t.LinkedProblemID), 10)
	} else {
		snapshot["linked_problem_id"] = ""
	}

	// 自定义数据平铺进快照，不覆盖核心字段
	if len(t.CustomData) > 0 {
		var custom map[string]interface{}
		if err := json.Unmarshal(t.CustomData, &custom); err == nil {
			for key, value := range custom {
				if _, exists := snapshot[key]; !exists {
					snapshot[key] = value
				}
			}
		}
	}

	return snapshot
}

// TicketEvent 由工单构建事件
func TicketEvent(t *models.Ticket, triggerType string) Event {
	return Event{
		EntityType:  t.Type,
		TriggerType: triggerType,
		EntityID:    t.ID,
		Entity:      TicketSnapshot(t),
	}
}
