package services

import (
	"testing"
	"time"

	"firelater/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedLogs(t *testing.T, db *gorm.DB, ruleID uint, entityType string, entityID uint, count int, base time.Time) {
	t.Helper()
	for i := 0; i < count; i++ {
		log := models.WorkflowExecutionLog{
			ID:         uuid.NewString(),
			RuleID:     ruleID,
			RuleName:   "测试规则",
			EntityType: entityType,
			EntityID:   entityID,
			ExecutedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, db.Create(&log).Error)
	}
}

func TestExecutionLogListFiltersAndOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowExecutionLogService(db)

	base := time.Now().Add(-time.Hour)
	seedLogs(t, db, 1, models.EntityTypeIssue, 10, 3, base)
	seedLogs(t, db, 2, models.EntityTypeChange, 20, 2, base.Add(time.Minute))

	logs, err := svc.List(ExecutionLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 5)
	// 按执行时间倒序
	for i := 1; i < len(logs); i++ {
		assert.False(t, logs[i].ExecutedAt.After(logs[i-1].ExecutedAt))
	}

	logs, err = svc.List(ExecutionLogFilter{RuleID: 1})
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = svc.List(ExecutionLogFilter{EntityType: models.EntityTypeChange, EntityID: 20})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = svc.List(ExecutionLogFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestExecutionLogListAfterCursor(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowExecutionLogService(db)

	base := time.Now().Add(-time.Hour)
	seedLogs(t, db, 1, models.EntityTypeIssue, 10, 3, base)

	cursor, err := svc.LatestExecutedAt(models.EntityTypeIssue)
	require.NoError(t, err)
	assert.False(t, cursor.IsZero())

	// 游标之后无新日志
	logs, err := svc.ListAfter(models.EntityTypeIssue, cursor, 10)
	require.NoError(t, err)
	assert.Empty(t, logs)

	seedLogs(t, db, 2, models.EntityTypeIssue, 11, 2, cursor.Add(time.Second))

	logs, err = svc.ListAfter(models.EntityTypeIssue, cursor, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// 增量推送按执行时间升序
	assert.True(t, logs[0].ExecutedAt.Before(logs[1].ExecutedAt))
}
