package workflow

import (
	"context"
	"errors"
	"testing"

	"firelater/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMutator 记录调用顺序的TicketMutator实现
type fakeMutator struct {
	calls   []string
	failOn  string
	failErr error
}

func (m *fakeMutator) record(name string) error {
	m.calls = append(m.calls, name)
	if name == m.failOn {
		if m.failErr == nil {
			m.failErr = errors.New("故意失败")
		}
		return m.failErr
	}
	return nil
}

func (m *fakeMutator) SetField(ctx context.Context, entityID uint, field, value string) error {
	return m.record("set_field:" + field)
}
func (m *fakeMutator) AssignToUser(ctx context.Context, entityID uint, user string) error {
	return m.record("assign_to_user:" + user)
}
func (m *fakeMutator) AssignToGroup(ctx context.Context, entityID uint, group string) error {
	return m.record("assign_to_group:" + group)
}
func (m *fakeMutator) ChangeStatus(ctx context.Context, entityID uint, status string) error {
	return m.record("change_status:" + status)
}
func (m *fakeMutator) ChangePriority(ctx context.Context, entityID uint, priority string) error {
	return m.record("change_priority:" + priority)
}
func (m *fakeMutator) AddComment(ctx context.Context, entityID uint, content string) error {
	return m.record("add_comment")
}
func (m *fakeMutator) Escalate(ctx context.Context, entityID uint, level string) error {
	return m.record("escalate")
}
func (m *fakeMutator) LinkToProblem(ctx context.Context, entityID uint, problemID string) error {
	return m.record("link_to_problem:" + problemID)
}
func (m *fakeMutator) CreateTask(ctx context.Context, entityID uint, title, assignee string) error {
	return m.record("create_task:" + title)
}

// fakeNotifier 记录通知调用的Notifier实现
type fakeNotifier struct {
	notifications []string
	emails        []string
}

func (n *fakeNotifier) SendNotification(ctx context.Context, ev Event, ruleID uint, channel, message string) error {
	n.notifications = append(n.notifications, channel+":"+message)
	return nil
}

func (n *fakeNotifier) SendEmail(ctx context.Context, ev Event, ruleID uint, to, subject, body string) error {
	n.emails = append(n.emails, to+":"+subject)
	return nil
}

func testEvent() Event {
	return Event{
		EntityType:  models.EntityTypeIssue,
		TriggerType: models.TriggerOnCreate,
		EntityID:    42,
		Entity:      testEntity(),
	}
}

func TestDispatcherExecutesInOrder(t *testing.T) {
	mutator := &fakeMutator{}
	notifier := &fakeNotifier{}
	dispatcher := NewActionDispatcher(mutator, notifier)

	// 乱序声明，按order升序执行
	actions := []models.WorkflowAction{
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "done"}, Order: 2},
		{Type: models.ActionChangePriority, Parameters: map[string]string{"priority": "high"}, Order: 0},
		{Type: models.ActionAssignToGroup, Parameters: map[string]string{"group": "dba"}, Order: 1},
	}

	applied, err := dispatcher.Execute(context.Background(), 1, testEvent(), actions)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, []string{
		"change_priority:high",
		"assign_to_group:dba",
		"add_comment",
	}, mutator.calls)
}

func TestDispatcherStopsAtFirstFailure(t *testing.T) {
	mutator := &fakeMutator{failOn: "assign_to_group:dba"}
	notifier := &fakeNotifier{}
	dispatcher := NewActionDispatcher(mutator, notifier)

	actions := []models.WorkflowAction{
		{Type: models.ActionChangePriority, Parameters: map[string]string{"priority": "high"}, Order: 0},
		{Type: models.ActionAssignToGroup, Parameters: map[string]string{"group": "dba"}, Order: 1},
		{Type: models.ActionAddComment, Parameters: map[string]string{"content": "done"}, Order: 2},
	}

	applied, err := dispatcher.Execute(context.Background(), 1, testEvent(), actions)
	require.Error(t, err)
	assert.Equal(t, 1, applied)
	// 第三个动作不再尝试
	assert.Equal(t, []string{"change_priority:high", "assign_to_group:dba"}, mutator.calls)
	assert.Contains(t, err.Error(), "assign_to_group")
}

func TestDispatcherNotificationActions(t *testing.T) {
	mutator := &fakeMutator{}
	notifier := &fakeNotifier{}
	dispatcher := NewActionDispatcher(mutator, notifier)

	actions := []models.WorkflowAction{
		{Type: models.ActionSendNotification, Parameters: map[string]string{"message": "规则命中", "channel": "ops"}, Order: 0},
		{Type: models.ActionSendEmail, Parameters: map[string]string{"to": "oncall@example.com", "subject": "升级"}, Order: 1},
	}

	applied, err := dispatcher.Execute(context.Background(), 1, testEvent(), actions)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)
	assert.Equal(t, []string{"ops:规则命中"}, notifier.notifications)
	assert.Equal(t, []string{"oncall@example.com:升级"}, notifier.emails)
}

func TestDispatcherUnknownActionType(t *testing.T) {
	dispatcher := NewActionDispatcher(&fakeMutator{}, &fakeNotifier{})

	actions := []models.WorkflowAction{
		{Type: "delete_everything", Order: 0},
	}

	applied, err := dispatcher.Execute(context.Background(), 1, testEvent(), actions)
	require.Error(t, err)
	assert.Equal(t, 0, applied)
}
