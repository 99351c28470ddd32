package handlers

import (
	"strconv"

	"firelater/internal/middleware"
	"firelater/internal/services"
	"firelater/internal/workflow"
	"firelater/pkg/config"
	"firelater/pkg/errors"
	"firelater/pkg/pagination"
	"firelater/pkg/response"

	"github.com/gin-gonic/gin"
)

// WorkflowRuleHandler 工作流规则处理器
type WorkflowRuleHandler struct {
	ruleService *services.WorkflowRuleService
	logService  *services.WorkflowExecutionLogService
	registry    *workflow.FieldRegistry
}

// NewWorkflowRuleHandler 创建工作流规则处理器
func NewWorkflowRuleHandler(
	ruleService *services.WorkflowRuleService,
	logService *services.WorkflowExecutionLogService,
	registry *workflow.FieldRegistry,
) *WorkflowRuleHandler {
	return &WorkflowRuleHandler{
		ruleService: ruleService,
		logService:  logService,
		registry:    registry,
	}
}

// Create 创建规则
func (h *WorkflowRuleHandler) Create(c *gin.Context) {
	var req services.CreateWorkflowRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	rule, err := h.ruleService.Create(req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, errors.CodeRuleInvalid, err.Error())
		return
	}
	response.SuccessWithMessage(c, "规则创建成功", rule)
}

// Get 规则详情
func (h *WorkflowRuleHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.GetByID(id)
	if err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, rule)
}

// List 规则列表
func (h *WorkflowRuleHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	filter := services.WorkflowRuleListFilter{
		EntityType:  c.Query("entity_type"),
		TriggerType: c.Query("trigger_type"),
		Search:      c.Query("search"),
	}
	if activeStr := c.Query("is_active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			response.BadRequest(c, "is_active参数无效")
			return
		}
		filter.IsActive = &active
	}

	rules, total, err := h.ruleService.List(params, filter)
	if err != nil {
		response.ServerError(c, "查询规则列表失败")
		return
	}
	response.SuccessWithPage(c, rules, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Update 更新规则
func (h *WorkflowRuleHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UpdateWorkflowRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, translateValidationError(err))
		return
	}

	rule, err := h.ruleService.Update(id, req, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, errors.CodeRuleInvalid, err.Error())
		return
	}
	response.SuccessWithMessage(c, "规则更新成功", rule)
}

// Delete 删除规则
func (h *WorkflowRuleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.ruleService.Delete(id); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "规则删除成功", nil)
}

// Enable 启用规则
func (h *WorkflowRuleHandler) Enable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.SetActive(id, true, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, errors.CodeRuleInvalid, err.Error())
		return
	}
	response.SuccessWithMessage(c, "规则已启用", rule)
}

// Disable 停用规则
func (h *WorkflowRuleHandler) Disable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.SetActive(id, false, middleware.GetUserID(c))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.SuccessWithMessage(c, "规则已停用", rule)
}

// GetFields 实体类型可用于条件的字段目录
func (h *WorkflowRuleHandler) GetFields(c *gin.Context) {
	entityType := c.Query("entity_type")
	if entityType == "" {
		response.BadRequest(c, "缺少entity_type参数")
		return
	}

	fields, err := h.registry.Fields(entityType)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, fields)
}

// ListExecutions 执行日志查询
func (h *WorkflowRuleHandler) ListExecutions(c *gin.Context) {
	cfg := config.GetConfig().Workflow
	filter := services.ExecutionLogFilter{
		EntityType: c.Query("entity_type"),
		Limit:      pagination.ParseLimit(c, cfg.ExecutionLogLimit, cfg.ExecutionLogMaxLimit),
	}
	if ruleIDStr := c.Query("rule_id"); ruleIDStr != "" {
		ruleID, err := strconv.ParseUint(ruleIDStr, 10, 32)
		if err != nil {
			response.BadRequest(c, "rule_id参数无效")
			return
		}
		filter.RuleID = uint(ruleID)
	}
	if entityIDStr := c.Query("entity_id"); entityIDStr != "" {
		entityID, err := strconv.ParseUint(entityIDStr, 10, 32)
		if err != nil {
			response.BadRequest(c, "entity_id参数无效")
			return
		}
		filter.EntityID = uint(entityID)
	}

	logs, err := h.logService.List(filter)
	if err != nil {
		response.ServerError(c, "查询执行日志失败")
		return
	}
	response.Success(c, logs)
}
