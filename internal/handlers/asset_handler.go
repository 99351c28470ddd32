package handlers

import (
	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/pkg/pagination"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// AssetHandler 资产处理器
type AssetHandler struct {
	assetService *services.AssetService
}

// NewAssetHandler 创建资产处理器
func NewAssetHandler(assetService *services.AssetService) *AssetHandler {
	return &AssetHandler{assetService: assetService}
}

// Create 创建资产
func (h *AssetHandler) Create(c *gin.Context) {
	var req services.CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	asset, err := h.assetService.Create(req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "资产创建成功", asset)
}

// Get 资产详情
func (h *AssetHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	asset, err := h.assetService.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, asset)
}

// List 资产列表
func (h *AssetHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	filter := services.AssetListFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Owner:    c.Query("owner"),
		Search:   c.Query("search"),
	}

	assets, total, err := h.assetService.List(params, filter)
	if err != nil {
		response.ServerError(c, "查询资产列表失败")
		return
	}
	response.SuccessWithPage(c, assets, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新资产
func (h *AssetHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	asset, err := h.assetService.Update(id, req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "资产更新成功", asset)
}

// Delete 删除资产
func (h *AssetHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.assetService.Delete(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "资产删除成功", nil)
}
