package handlers

import (
	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/pkg/pagination"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// CloudResourceHandler 云资源处理器
type CloudResourceHandler struct {
	cloudResourceService *services.CloudResourceService
}

// NewCloudResourceHandler 创建云资源处理器
func NewCloudResourceHandler(cloudResourceService *services.CloudResourceService) *CloudResourceHandler {
	return &CloudResourceHandler{cloudResourceService: cloudResourceService}
}

// Create 登记云资源
func (h *CloudResourceHandler) Create(c *gin.Context) {
	var req services.CreateCloudResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	resource, err := h.cloudResourceService.Create(req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "云资源登记成功", resource)
}

// Get 云资源详情
func (h *CloudResourceHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resource, err := h.cloudResourceService.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, resource)
}

// List 云资源列表
func (h *CloudResourceHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	filter := services.CloudResourceListFilter{
		Provider:     c.Query("provider"),
		Region:       c.Query("region"),
		ResourceType: c.Query("resource_type"),
		Status:       c.Query("status"),
		Search:       c.Query("search"),
	}

	resources, total, err := h.cloudResourceService.List(params, filter)
	if err != nil {
		response.ServerError(c, "查询云资源列表失败")
		return
	}
	response.SuccessWithPage(c, resources, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新云资源
func (h *CloudResourceHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateCloudResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	resource, err := h.cloudResourceService.Update(id, req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "云资源更新成功", resource)
}

// Delete 删除云资源
func (h *CloudResourceHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.cloudResourceService.Delete(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "云资源删除成功", nil)
}
