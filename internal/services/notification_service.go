package services

import (
	"context"
	"errors"

	"firelater/internal/workflow"
	"firelater/pkg/queue"

	"github.com/google/uuid"
)

// 默认通知渠道
const defaultNotifyChannel = "notify"

// NotificationService 通知服务
//
// 实现workflow.Notifier，通知类动作只负责入队，
// 实际投递由独立的消费端完成，动作执行不依赖下游通道的可用性。
type NotificationService struct {
	queue *queue.RedisQueue
}

// NewNotificationService 创建通知服务
func NewNotificationService(q *queue.RedisQueue) *NotificationService {
	return &NotificationService{queue: q}
}

// SendNotification 发送站内/渠道通知
func (s *NotificationService) SendNotification(ctx context.Context, ev workflow.Event, ruleID uint, channel, message string) error {
	if message == "" {
		return errors.New("通知内容不能为空")
	}
	if channel == "" {
		channel = defaultNotifyChannel
	}

	recipient := ""
	if assignee, ok := ev.Entity["assignee"].(string); ok {
		recipient = assignee
	}

	return s.queue.Enqueue(ctx, &queue.NotificationMessage{
		MessageID:  uuid.NewString(),
		Channel:    channel,
		Recipient:  recipient,
		Content:    message,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		RuleID:     ruleID,
	})
}

// SendEmail 发送邮件通知
func (s *NotificationService) SendEmail(ctx context.Context, ev workflow.Event, ruleID uint, to, subject, body string) error {
	if to == "" {
		return errors.New("收件人不能为空")
	}
	if subject == "" {
		if title, ok := ev.Entity["title"].(string); ok {
			subject = title
		}
	}

	return s.queue.Enqueue(ctx, &queue.NotificationMessage{
		MessageID:  uuid.NewString(),
		Channel:    "email",
		Recipient:  to,
		Subject:    subject,
		Content:    body,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		RuleID:     ruleID,
	})
}
