package workflow

import (
	"testing"

	"firelater/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCronExpr(t *testing.T) {
	// 6字段，含秒
	assert.NoError(t, ValidateCronExpr("0 */5 * * * *"))
	assert.NoError(t, ValidateCronExpr("30 0 9 * * 1-5"))

	assert.Error(t, ValidateCronExpr(""))
	assert.Error(t, ValidateCronExpr("*/5 * * * *")) // 5字段不接受
	assert.Error(t, ValidateCronExpr("not a cron"))
}

func TestSchedulerRefreshRuleLifecycle(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})
	scheduler := NewScheduler(db, engine)

	rule := mustCreateRule(t, db, &models.WorkflowRule{
		Name: "定时巡检", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerScheduled,
		CronExpr: "0 */10 * * * *",
	}, nil, commentAction())

	require.NoError(t, scheduler.RefreshRule(rule.ID))
	assert.Equal(t, 1, scheduler.ScheduledRuleCount())

	// 停用后移除调度
	require.NoError(t, db.Model(rule).Update("is_active", false).Error)
	require.NoError(t, scheduler.RefreshRule(rule.ID))
	assert.Equal(t, 0, scheduler.ScheduledRuleCount())

	// 重新启用
	require.NoError(t, db.Model(rule).Update("is_active", true).Error)
	require.NoError(t, scheduler.RefreshRule(rule.ID))
	assert.Equal(t, 1, scheduler.ScheduledRuleCount())

	// 规则删除后RefreshRule自动清理
	require.NoError(t, db.Delete(&models.WorkflowRule{}, rule.ID).Error)
	require.NoError(t, scheduler.RefreshRule(rule.ID))
	assert.Equal(t, 0, scheduler.ScheduledRuleCount())
}

func TestSchedulerIgnoresNonScheduledRules(t *testing.T) {
	db := newTestDB(t)
	engine := newTestEngine(t, db, &fakeMutator{}, &fakeNotifier{})
	scheduler := NewScheduler(db, engine)

	rule := mustCreateRule(t, db, &models.WorkflowRule{
		Name: "事件规则", IsActive: true,
		EntityType: models.EntityTypeIssue, TriggerType: models.TriggerOnCreate,
	}, nil, commentAction())

	require.NoError(t, scheduler.RefreshRule(rule.ID))
	assert.Equal(t, 0, scheduler.ScheduledRuleCount())
}
