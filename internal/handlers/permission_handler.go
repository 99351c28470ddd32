package handlers

import (
	"firelater/internal/services"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// PermissionHandler 权限查询处理器
type PermissionHandler struct {
	permissionService *services.PermissionService
}

// NewPermissionHandler 创建权限处理器
func NewPermissionHandler(permissionService *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

// List 权限列表（可按模块过滤）
func (h *PermissionHandler) List(c *gin.Context) {
	module := c.Query("module")

	var err error
	var permissions interface{}
	if module != "" {
		permissions, err = h.permissionService.ListByModule(module)
	} else {
		permissions, err = h.permissionService.List()
	}
	if err != nil {
		response.ServerError(c, "查询权限列表失败")
		return
	}
	response.Success(c, permissions)
}
