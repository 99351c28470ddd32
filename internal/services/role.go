package services

import (
	"errors"

	"firelater/internal/database"
	"firelater/internal/models"
	"firelater/pkg/pagination"

	"gorm.io/gorm"
)

// RoleService 角色服务
type RoleService struct {
	db *gorm.DB
}

// NewRoleService 创建角色服务
func NewRoleService() *RoleService {
	return &RoleService{db: database.GetDB()}
}

// NewRoleServiceWithDB 使用指定数据库创建角色服务（测试用）
func NewRoleServiceWithDB(db *gorm.DB) *RoleService {
	return &RoleService{db: db}
}

// CreateRoleRequest 创建角色请求
type CreateRoleRequest struct {
	Code        string `json:"code" binding:"required,max=100"`
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=255"`
}

// UpdateRoleRequest 更新角色请求
type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"max=100"`
	Description string `json:"description" binding:"max=255"`
	Status      string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// Create 创建角色
func (s *RoleService) Create(req CreateRoleRequest) (*models.Role, error) {
	var count int64
	if err := s.db.Model(&models.Role{}).Where("code = ?", req.Code).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("角色代码已存在")
	}

	role := &models.Role{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.RoleStatusActive,
	}
	if err := s.db.Create(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

// GetByID 根据ID获取角色
func (s *RoleService) GetByID(id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.Preload("Permissions").First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("角色不存在")
		}
		return nil, err
	}
	return &role, nil
}

// List 角色列表
func (s *RoleService) List(params *pagination.PageParams, search string) ([]models.Role, int64, error) {
	query := s.db.Model(&models.Role{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("code LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roles []models.Role
	err := query.Preload("Permissions").
		Order("id ASC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&roles).Error
	return roles, total, err
}

// Update 更新角色
func (s *RoleService) Update(id uint, req UpdateRoleRequest) (*models.Role, error) {
	role, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, errors.New("系统角色不可修改")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}

	if len(updates) > 0 {
		if err := s.db.Model(role).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

// Delete 删除角色
func (s *RoleService) Delete(id uint) error {
	role, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return errors.New("系统角色不可删除")
	}

	// 角色被用户引用时不允许删除
	var count int64
	if err := s.db.Model(&models.UserRole{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("角色仍被用户使用，无法删除")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Role{}, id).Error
	})
}

// AssignPermissions 全量设置角色权限
func (s *RoleService) AssignPermissions(roleID uint, permissionIDs []uint) error {
	if _, err := s.GetByID(roleID); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Permission{}).Where("id IN ?", permissionIDs).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(permissionIDs)) {
		return errors.New("存在无效的权限ID")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			rolePermission := models.RolePermission{
				RoleID:       roleID,
				PermissionID: permissionID,
			}
			if err := tx.Create(&rolePermission).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
