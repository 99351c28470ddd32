package services

import (
	"errors"
	"time"

	"firelater/internal/database"
	"firelater/internal/models"
	"firelater/pkg/pagination"

	"gorm.io/gorm"
)

// UserService 用户服务
type UserService struct {
	db *gorm.DB
}

// NewUserService 创建用户服务
func NewUserService() *UserService {
	return &UserService{db: database.GetDB()}
}

// NewUserServiceWithDB 使用指定数据库创建用户服务（测试用）
func NewUserServiceWithDB(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CreateUserRequest 创建用户请求
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"max=20"`
	IsAdmin  bool   `json:"is_admin"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Email  string  `json:"email" binding:"omitempty,email,max=100"`
	Name   string  `json:"name" binding:"max=100"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

// Create 创建用户
func (s *UserService) Create(req CreateUserRequest, createdBy uint) (*models.User, error) {
	// 验证用户名唯一
	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("用户名已存在")
	}

	// 验证邮箱唯一
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("邮箱已存在")
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Status:   models.UserStatusActive,
		IsAdmin:  req.IsAdmin,
	}
	if req.Phone != "" {
		user.Phone = &req.Phone
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// GetByID 根据ID获取用户
func (s *UserService) GetByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Roles").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (s *UserService) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Roles").Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("用户不存在")
		}
		return nil, err
	}
	return &user, nil
}

// List 用户列表
func (s *UserService) List(params *pagination.PageParams, search string) ([]models.User, int64, error) {
	query := s.db.Model(&models.User{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR name LIKE ? OR email LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.Preload("Roles").
		Order("id DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&users).Error
	return users, total, err
}

// Update 更新用户
func (s *UserService) Update(id uint, req UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if req.Email != "" {
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("email = ? AND id != ?", req.Email, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New("邮箱已存在")
		}
		updates["email"] = req.Email
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Avatar != nil {
		updates["avatar"] = *req.Avatar
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete 删除用户
func (s *UserService) Delete(id uint) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		// 保底：至少保留一个管理员
		var count int64
		if err := s.db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return errors.New("不能删除最后一个管理员")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, id).Error
	})
}

// SetStatus 设置用户状态
func (s *UserService) SetStatus(id uint, status string) error {
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("status", status).Error
}

// ResetPassword 重置密码
func (s *UserService) ResetPassword(id uint, newPassword string) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", user.PasswordHash).Error
}

// UpdateLastLogin 记录登录时间
func (s *UserService) UpdateLastLogin(id uint) error {
	now := time.Now()
	return s.db.Model(&models.User{}).Where("id = ?", id).Update("last_login_at", now).Error
}

// AssignRoles 全量设置用户角色
func (s *UserService) AssignRoles(userID uint, roleIDs []uint, assignedBy uint) error {
	if _, err := s.GetByID(userID); err != nil {
		return err
	}

	// 验证角色都存在
	var count int64
	if err := s.db.Model(&models.Role{}).Where("id IN ?", roleIDs).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(roleIDs)) {
		return errors.New("存在无效的角色ID")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			userRole := models.UserRole{
				UserID:    userID,
				RoleID:    roleID,
				CreatedBy: assignedBy,
			}
			if err := tx.Create(&userRole).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUserPermissions 获取用户的全部权限码（经角色汇总去重）
func (s *UserService) GetUserPermissions(userID uint) ([]string, error) {
	var codes []string
	err := s.db.Model(&models.Permission{}).
		Distinct("permissions.code").
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("permissions.code", &codes).Error
	return codes, err
}

// HasPermission 检查用户是否具有某权限（管理员拥有全部权限）
func (s *UserService) HasPermission(userID uint, permissionCode string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return false, err
	}
	if user.IsAdmin {
		return true, nil
	}

	var count int64
	err := s.db.Model(&models.Permission{}).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND permissions.code = ?", userID, permissionCode).
		Count(&count).Error
	return count > 0, err
}
