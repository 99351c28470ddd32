package main

import (
	"fmt"
	"os"

	"firelater/internal/models"
	"firelater/pkg/logger"

	"gorm.io/gorm"
)

// 各模块的权限动作
var permissionCatalog = map[string][]string{
	models.ModuleUser:          {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
	models.ModuleRole:          {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
	models.ModuleTicket:        {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
	models.ModuleAsset:         {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
	models.ModuleCloudResource: {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
	models.ModuleWorkflow:      {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate, models.ActionDelete},
}

// 模块展示名
var moduleLabels = map[string]string{
	models.ModuleUser:          "用户",
	models.ModuleRole:          "角色",
	models.ModuleTicket:        "工单",
	models.ModuleAsset:         "资产",
	models.ModuleCloudResource: "云资源",
	models.ModuleWorkflow:      "工作流",
}

// 动作展示名
var actionLabels = map[string]string{
	models.ActionList:   "列表",
	models.ActionCreate: "创建",
	models.ActionRead:   "查看",
	models.ActionUpdate: "更新",
	models.ActionDelete: "删除",
}

// Seed 初始化权限目录、系统角色和管理员账号（幂等）
func Seed(db *gorm.DB) error {
	if err := seedPermissions(db); err != nil {
		return fmt.Errorf("初始化权限失败: %v", err)
	}
	if err := seedRoles(db); err != nil {
		return fmt.Errorf("初始化角色失败: %v", err)
	}
	if err := seedAdminUser(db); err != nil {
		return fmt.Errorf("初始化管理员失败: %v", err)
	}
	return nil
}

// seedPermissions 按目录补齐权限项
func seedPermissions(db *gorm.DB) error {
	for module, actions := range permissionCatalog {
		for _, action := range actions {
			code := module + ":" + action

			var count int64
			if err := db.Model(&models.Permission{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			permission := models.Permission{
				Code:   code,
				Name:   actionLabels[action] + moduleLabels[module],
				Module: module,
				Action: action,
			}
			if err := db.Create(&permission).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// 系统角色的权限范围
var systemRoles = []struct {
	Code        string
	Name        string
	Description string
	Modules     map[string][]string // 为空表示全部权限
}{
	{
		Code:        models.RoleAdmin,
		Name:        "系统管理员",
		Description: "拥有全部权限",
	},
	{
		Code:        models.RoleServiceDesk,
		Name:        "服务台",
		Description: "工单处理与工作流规则维护",
		Modules: map[string][]string{
			models.ModuleTicket:        {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate},
			models.ModuleWorkflow:      {models.ActionList, models.ActionCreate, models.ActionRead, models.ActionUpdate},
			models.ModuleAsset:         {models.ActionList, models.ActionRead},
			models.ModuleCloudResource: {models.ActionList, models.ActionRead},
		},
	},
	{
		Code:        models.RoleViewer,
		Name:        "只读用户",
		Description: "各模块的只读访问",
		Modules: map[string][]string{
			models.ModuleTicket:        {models.ActionList, models.ActionRead},
			models.ModuleWorkflow:      {models.ActionList, models.ActionRead},
			models.ModuleAsset:         {models.ActionList, models.ActionRead},
			models.ModuleCloudResource: {models.ActionList, models.ActionRead},
		},
	},
}

// seedRoles 创建系统角色并绑定权限
func seedRoles(db *gorm.DB) error {
	for _, roleDef := range systemRoles {
		var count int64
		if err := db.Model(&models.Role{}).Where("code = ?", roleDef.Code).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		role := models.Role{
			Code:        roleDef.Code,
			Name:        roleDef.Name,
			Description: roleDef.Description,
			IsSystem:    true,
			Status:      models.RoleStatusActive,
		}
		if err := db.Create(&role).Error; err != nil {
			return err
		}

		var permissions []models.Permission
		query := db.Model(&models.Permission{})
		if roleDef.Modules != nil {
			codes := make([]string, 0)
			for module, actions := range roleDef.Modules {
				for _, action := range actions {
					codes = append(codes, module+":"+action)
				}
			}
			query = query.Where("code IN ?", codes)
		}
		if err := query.Find(&permissions).Error; err != nil {
			return err
		}

		for _, permission := range permissions {
			rolePermission := models.RolePermission{
				RoleID:       role.ID,
				PermissionID: permission.ID,
			}
			if err := db.Create(&rolePermission).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// seedAdminUser 创建默认管理员账号
func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin@123456"
		logger.GetLogger().Warn("使用默认管理员密码，请尽快修改")
	}

	admin := models.User{
		Username: username,
		Email:    username + "@localhost",
		Name:     "系统管理员",
		Status:   models.UserStatusActive,
		IsAdmin:  true,
	}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.GetLogger().Infof("管理员账号 %s 创建成功", username)
	return nil
}
