package workflow

import (
	"context"
	"fmt"
	"sort"

	"firelater/internal/models"
)

// TicketMutator 动作派发委托的实体服务接口
//
// 调度器不直接改写实体，全部变更通过实体服务完成；
// 实现方执行这些方法时不得再次触发规则事件，否则会造成规则递归。
type TicketMutator interface {
	SetField(ctx context.Context, entityID uint, field, value string) error
	AssignToUser(ctx context.Context, entityID uint, user string) error
	AssignToGroup(ctx context.Context, entityID uint, group string) error
	ChangeStatus(ctx context.Context, entityID uint, status string) error
	ChangePriority(ctx context.Context, entityID uint, priority string) error
	AddComment(ctx context.Context, entityID uint, content string) error
	Escalate(ctx context.Context, entityID uint, level string) error
	LinkToProblem(ctx context.Context, entityID uint, problemID string) error
	CreateTask(ctx context.Context, entityID uint, title, assignee string) error
}

// Notifier 通知类动作的协作接口
type Notifier interface {
	SendNotification(ctx context.Context, ev Event, ruleID uint, channel, message string) error
	SendEmail(ctx context.Context, ev Event, ruleID uint, to, subject, body string) error
}

// ActionDispatcher 动作调度器
type ActionDispatcher struct {
	tickets  TicketMutator
	notifier Notifier
}

// NewActionDispatcher 创建动作调度器
func NewActionDispatcher(tickets TicketMutator, notifier Notifier) *ActionDispatcher {
	return &ActionDispatcher{
		tickets:  tickets,
		notifier: notifier,
	}
}

// Execute 按order升序依次执行动作
//
// 首个失败的动作中止本规则剩余动作（不重试、不回滚已执行的动作），
// 返回成功执行的动作数和触发中止的错误。
func (d *ActionDispatcher) Execute(ctx context.Context, ruleID uint, ev Event, actions []models.WorkflowAction) (int, error) {
	ordered := make([]models.WorkflowAction, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	applied := 0
	for _, action := range ordered {
		if err := d.executeOne(ctx, ruleID, ev, action); err != nil {
			return applied, fmt.Errorf("动作 %s (order=%d) 执行失败: %v", action.Type, action.Order, err)
		}
		applied++
	}

	return applied, nil
}

// executeOne 执行单个动作，每种动作类型对应一个实体服务操作
func (d *ActionDispatcher) executeOne(ctx context.Context, ruleID uint, ev Event, action models.WorkflowAction) error {
	params := action.Parameters
	if params == nil {
		params = map[string]string{}
	}

	switch action.Type {
	case models.ActionSetField:
		return d.tickets.SetField(ctx, ev.EntityID, params["field"], params["value"])
	case models.ActionAssignToUser:
		return d.tickets.AssignToUser(ctx, ev.EntityID, params["user"])
	case models.ActionAssignToGroup:
		return d.tickets.AssignToGroup(ctx, ev.EntityID, params["group"])
	case models.ActionChangeStatus:
		return d.tickets.ChangeStatus(ctx, ev.EntityID, params["status"])
	case models.ActionChangePriority:
		return d.tickets.ChangePriority(ctx, ev.EntityID, params["priority"])
	case models.ActionAddComment:
		return d.tickets.AddComment(ctx, ev.EntityID, params["content"])
	case models.ActionSendNotification:
		return d.notifier.SendNotification(ctx, ev, ruleID, params["channel"], params["message"])
	case models.ActionSendEmail:
		return d.notifier.SendEmail(ctx, ev, ruleID, params["to"], params["subject"], params["body"])
	case models.ActionEscalate:
		return d.tickets.Escalate(ctx, ev.EntityID, params["level"])
	case models.ActionLinkToProblem:
		return d.tickets.LinkToProblem(ctx, ev.EntityID, params["problem_id"])
	case models.ActionCreateTask:
		return d.tickets.CreateTask(ctx, ev.EntityID, params["title"], params["assignee"])
	default:
		return fmt.Errorf("未知的动作类型: %s", action.Type)
	}
}
