package handlers

import (
	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/pkg/errors"
	"firelater/pkg/pagination"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// TicketHandler 工单处理器
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler 创建工单处理器
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// Create 创建工单
func (h *TicketHandler) Create(c *gin.Context) {
	var req services.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	ticket, err := h.ticketService.Create(req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "工单创建成功", ticket)
}

// Get 工单详情
func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ticket, err := h.ticketService.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, ticket)
}

// List 工单列表
func (h *TicketHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	filter := services.TicketListFilter{
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Assignee: c.Query("assignee"),
		Search:   c.Query("search"),
	}

	tickets, total, err := h.ticketService.List(params, filter)
	if err != nil {
		response.ServerError(c, "查询工单列表失败")
		return
	}
	response.SuccessWithPage(c, tickets, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新工单
func (h *TicketHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	ticket, err := h.ticketService.Update(id, req, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "工单更新成功", ticket)
}

// Delete 删除工单
func (h *TicketHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.ticketService.Delete(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "工单删除成功", nil)
}

// UpdateStatusRequest 状态流转请求
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open in_progress pending resolved closed"`
}

// UpdateStatus 工单状态流转
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	ticket, err := h.ticketService.UpdateStatus(id, req.Status, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, errors.CodeTicketTransition, err.Error())
		return
	}
	response.SuccessWithMessage(c, "状态更新成功", ticket)
}

// AssignRequest 指派请求
type AssignRequest struct {
	Assignee string `json:"assignee" binding:"max=100"`
	Group    string `json:"group" binding:"max=100"`
}

// Assign 指派工单
func (h *TicketHandler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	ticket, err := h.ticketService.Assign(id, req.Assignee, req.Group, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "指派成功", ticket)
}

// AddCommentRequest 添加评论请求
type AddCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddComment 添加评论
func (h *TicketHandler) AddComment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	claims := middleware.GetClaims(c)
	author := "unknown"
	if claims != nil {
		author = claims.Username
	}

	comment, err := h.ticketService.AddUserComment(id, author, req.Content)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "评论添加成功", comment)
}

// ListComments 工单评论列表
func (h *TicketHandler) ListComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	comments, err := h.ticketService.ListComments(id)
	if err != nil {
		response.ServerError(c, "查询评论失败")
		return
	}
	response.Success(c, comments)
}

// ListTasks 工单后续任务列表
func (h *TicketHandler) ListTasks(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	tasks, err := h.ticketService.ListTasks(id)
	if err != nil {
		response.ServerError(c, "查询任务失败")
		return
	}
	response.Success(c, tasks)
}
