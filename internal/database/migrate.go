package database

import (
	"firelater/internal/models"
	"firelater/pkg/logger"
)

// Migrate 执行数据库迁移
func Migrate() error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting database migration...")

	err := DB.AutoMigrate(
		// 用户与权限
		&models.User{},
		&models.Permission{},
		&models.Role{},
		&models.RolePermission{},
		&models.UserRole{},
		// 工单
		&models.Ticket{},
		&models.TicketComment{},
		&models.TicketTask{},
		// 资产与云资源
		&models.Asset{},
		&models.CloudResource{},
		// 工作流自动化
		&models.WorkflowRule{},
		&models.WorkflowExecutionLog{},
	)

	if err != nil {
		appLogger.Errorf("Database migration failed: %v", err)
		return err
	}

	appLogger.Info("Database migration completed")
	return nil
}
