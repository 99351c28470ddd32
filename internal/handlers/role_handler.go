package handlers

import (
	"firelater/internal/services"
	"firelater/pkg/pagination"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// RoleHandler 角色管理处理器
type RoleHandler struct {
	roleService *services.RoleService
}

// NewRoleHandler 创建角色处理器
func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// Create 创建角色
func (h *RoleHandler) Create(c *gin.Context) {
	var req services.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	role, err := h.roleService.Create(req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "角色创建成功", role)
}

// Get 角色详情
func (h *RoleHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	role, err := h.roleService.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, role)
}

// List 角色列表
func (h *RoleHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	roles, total, err := h.roleService.List(params, c.Query("search"))
	if err != nil {
		response.ServerError(c, "查询角色列表失败")
		return
	}
	response.SuccessWithPage(c, roles, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新角色
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	role, err := h.roleService.Update(id, req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "角色更新成功", role)
}

// Delete 删除角色
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.roleService.Delete(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "角色删除成功", nil)
}

// AssignPermissionsRequest 设置角色权限请求
type AssignPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required"`
}

// AssignPermissions 设置角色权限（全量替换）
func (h *RoleHandler) AssignPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	if err := h.roleService.AssignPermissions(id, req.PermissionIDs); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "权限分配成功", nil)
}
