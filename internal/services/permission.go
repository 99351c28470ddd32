package services

import (
	"firelater/internal/database"
	"firelater/internal/models"

	"gorm.io/gorm"
)

// PermissionService 权限服务（权限项由种子数据维护，只读查询）
type PermissionService struct {
	db *gorm.DB
}

// NewPermissionService 创建权限服务
func NewPermissionService() *PermissionService {
	return &PermissionService{db: database.GetDB()}
}

// List 全部权限，按模块分组排序
func (s *PermissionService) List() ([]models.Permission, error) {
	var permissions []models.Permission
	err := s.db.Order("module ASC, action ASC").Find(&permissions).Error
	return permissions, err
}

// ListByModule 指定模块的权限
func (s *PermissionService) ListByModule(module string) ([]models.Permission, error) {
	var permissions []models.Permission
	err := s.db.Where("module = ?", module).Order("action ASC").Find(&permissions).Error
	return permissions, err
}
