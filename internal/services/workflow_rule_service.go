package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"firelater/internal/models"
	"firelater/internal/workflow"
	"firelater/pkg/logger"
	"firelater/pkg/pagination"

	"gorm.io/gorm"
)

// WorkflowRuleService 工作流规则服务
//
// 规则的条件与动作在保存时校验，引擎执行时可以信任已保存的规则结构；
// 实体类型与触发类型创建后不可修改。
type WorkflowRuleService struct {
	db       *gorm.DB
	registry *workflow.FieldRegistry
}

// NewWorkflowRuleService 创建工作流规则服务
func NewWorkflowRuleService(db *gorm.DB, registry *workflow.FieldRegistry) *WorkflowRuleService {
	return &WorkflowRuleService{db: db, registry: registry}
}

// CreateWorkflowRuleRequest 创建规则请求
type CreateWorkflowRuleRequest struct {
	Name           string                     `json:"name" binding:"required,max=200"`
	Description    string                     `json:"description" binding:"max=500"`
	EntityType     string                     `json:"entity_type" binding:"required,oneof=issue problem change request"`
	TriggerType    string                     `json:"trigger_type" binding:"required,oneof=on_create on_update on_status_change on_assignment scheduled"`
	IsActive       *bool                      `json:"is_active"`
	Conditions     []models.WorkflowCondition `json:"conditions"`
	Actions        []models.WorkflowAction    `json:"actions"`
	StopOnMatch    bool                       `json:"stop_on_match"`
	ExecutionOrder *int                       `json:"execution_order"`
	CronExpr       string                     `json:"cron_expr" binding:"max=100"`
}

// UpdateWorkflowRuleRequest 更新规则请求（entity_type/trigger_type不可变，故不在请求中）
type UpdateWorkflowRuleRequest struct {
	Name           string                      `json:"name" binding:"max=200"`
	Description    *string                     `json:"description"`
	IsActive       *bool                       `json:"is_active"`
	Conditions     *[]models.WorkflowCondition `json:"conditions"`
	Actions        *[]models.WorkflowAction    `json:"actions"`
	StopOnMatch    *bool                       `json:"stop_on_match"`
	ExecutionOrder *int                        `json:"execution_order"`
	CronExpr       *string                     `json:"cron_expr"`
}

// WorkflowRuleListFilter 规则列表过滤条件
type WorkflowRuleListFilter struct {
	EntityType  string
	TriggerType string
	IsActive    *bool
	Search      string
}

// Create 创建规则
func (s *WorkflowRuleService) Create(req CreateWorkflowRuleRequest, userID uint) (*models.WorkflowRule, error) {
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	if err := s.validateConditions(req.EntityType, req.Conditions); err != nil {
		return nil, err
	}
	actions, err := s.validateActions(req.Actions, isActive)
	if err != nil {
		return nil, err
	}
	if err := s.validateCron(req.TriggerType, req.CronExpr); err != nil {
		return nil, err
	}

	rule := &models.WorkflowRule{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    isActive,
		EntityType:  req.EntityType,
		TriggerType: req.TriggerType,
		StopOnMatch: req.StopOnMatch,
		CronExpr:    req.CronExpr,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	rule.ExecutionOrder = 100
	if req.ExecutionOrder != nil {
		rule.ExecutionOrder = *req.ExecutionOrder
	}
	if err := rule.SetConditions(req.Conditions); err != nil {
		return nil, fmt.Errorf("序列化条件失败: %v", err)
	}
	if err := rule.SetActions(actions); err != nil {
		return nil, fmt.Errorf("序列化动作失败: %v", err)
	}

	if err := s.db.Create(rule).Error; err != nil {
		return nil, err
	}

	s.syncScheduler(rule.ID)
	return rule, nil
}

// GetByID 根据ID获取规则
func (s *WorkflowRuleService) GetByID(id uint) (*models.WorkflowRule, error) {
	var rule models.WorkflowRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("规则不存在")
		}
		return nil, err
	}
	return &rule, nil
}

// List 规则列表，按执行顺序排列
func (s *WorkflowRuleService) List(params *pagination.PageParams, filter WorkflowRuleListFilter) ([]models.WorkflowRule, int64, error) {
	query := s.db.Model(&models.WorkflowRule{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.TriggerType != "" {
		query = query.Where("trigger_type = ?", filter.TriggerType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rules []models.WorkflowRule
	err := query.Order("execution_order ASC, id ASC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&rules).Error
	return rules, total, err
}

// Update 更新规则
func (s *WorkflowRuleService) Update(id uint, req UpdateWorkflowRuleRequest, userID uint) (*models.WorkflowRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	isActive := rule.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	updates := map[string]interface{}{
		"is_active":  isActive,
		"updated_by": userID,
		"updated_at": time.Now(),
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.StopOnMatch != nil {
		updates["stop_on_match"] = *req.StopOnMatch
	}
	if req.ExecutionOrder != nil {
		updates["execution_order"] = *req.ExecutionOrder
	}

	if req.Conditions != nil {
		if err := s.validateConditions(rule.EntityType, *req.Conditions); err != nil {
			return nil, err
		}
		if err := rule.SetConditions(*req.Conditions); err != nil {
			return nil, fmt.Errorf("序列化条件失败: %v", err)
		}
		updates["conditions"] = rule.Conditions
	}

	// 动作未变更时也要复核：启用中的规则不允许动作为空
	if req.Actions != nil {
		actions, err := s.validateActions(*req.Actions, isActive)
		if err != nil {
			return nil, err
		}
		if err := rule.SetActions(actions); err != nil {
			return nil, fmt.Errorf("序列化动作失败: %v", err)
		}
		updates["actions"] = rule.Actions
	} else if isActive {
		actions, err := rule.GetActions()
		if err != nil {
			return nil, fmt.Errorf("解析已保存的动作失败: %v", err)
		}
		if len(actions) == 0 {
			return nil, errors.New("启用中的规则至少需要一个动作")
		}
	}

	if req.CronExpr != nil {
		if err := s.validateCron(rule.TriggerType, *req.CronExpr); err != nil {
			return nil, err
		}
		updates["cron_expr"] = *req.CronExpr
	}

	if err := s.db.Model(rule).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.syncScheduler(id)
	return s.GetByID(id)
}

// Delete 删除规则（历史执行日志保留rule_name快照，不随规则删除）
func (s *WorkflowRuleService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	if err := s.db.Delete(&models.WorkflowRule{}, id).Error; err != nil {
		return err
	}

	if scheduler := workflow.GetGlobalScheduler(); scheduler != nil {
		scheduler.RemoveRule(id)
	}
	return nil
}

// SetActive 启用/停用规则
func (s *WorkflowRuleService) SetActive(id uint, active bool, userID uint) (*models.WorkflowRule, error) {
	rule, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if active {
		actions, err := rule.GetActions()
		if err != nil {
			return nil, fmt.Errorf("解析已保存的动作失败: %v", err)
		}
		if len(actions) == 0 {
			return nil, errors.New("没有动作的规则无法启用")
		}
	}

	err = s.db.Model(rule).Updates(map[string]interface{}{
		"is_active":  active,
		"updated_by": userID,
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		return nil, err
	}

	s.syncScheduler(id)
	return s.GetByID(id)
}

// validateConditions 校验条件子句
func (s *WorkflowRuleService) validateConditions(entityType string, conditions []models.WorkflowCondition) error {
	for i, cond := range conditions {
		if cond.Field == "" {
			return fmt.Errorf("条件 %d 缺少字段名", i+1)
		}
		if !s.registry.Has(entityType, cond.Field) {
			return fmt.Errorf("条件 %d 引用了实体类型 %s 不存在的字段: %s", i+1, entityType, cond.Field)
		}
		if !isValidOperator(cond.Operator) {
			return fmt.Errorf("条件 %d 的操作符无效: %s", i+1, cond.Operator)
		}
		// 空值判断类操作符不需要比较值
		needsValue := cond.Operator != models.OperatorIsEmpty && cond.Operator != models.OperatorIsNotEmpty
		if needsValue && cond.Value == "" {
			return fmt.Errorf("条件 %d 的操作符 %s 需要比较值", i+1, cond.Operator)
		}
		// 首条子句的logic_op被忽略，其余必须是and/or
		if i > 0 && cond.LogicOp != models.LogicOpAnd && cond.LogicOp != models.LogicOpOr {
			return fmt.Errorf("条件 %d 的逻辑连接符无效: %s", i+1, cond.LogicOp)
		}
	}
	return nil
}

// validateActions 校验动作并重排order为0..n-1
func (s *WorkflowRuleService) validateActions(actions []models.WorkflowAction, isActive bool) ([]models.WorkflowAction, error) {
	if isActive && len(actions) == 0 {
		return nil, errors.New("启用中的规则至少需要一个动作")
	}

	for i, action := range actions {
		spec, ok := models.ActionParameterSpecs[action.Type]
		if !ok {
			return nil, fmt.Errorf("动作 %d 的类型无效: %s", i+1, action.Type)
		}

		for _, key := range spec.Required {
			if action.Parameters[key] == "" {
				return nil, fmt.Errorf("动作 %d (%s) 缺少必填参数: %s", i+1, action.Type, key)
			}
		}

		allowed := make(map[string]bool, len(spec.Required)+len(spec.Optional))
		for _, key := range spec.Required {
			allowed[key] = true
		}
		for _, key := range spec.Optional {
			allowed[key] = true
		}
		for key := range action.Parameters {
			if !allowed[key] {
				return nil, fmt.Errorf("动作 %d (%s) 包含未知参数: %s", i+1, action.Type, key)
			}
		}
	}

	// 按请求给定的order稳定排序后重排为连续值
	ordered := make([]models.WorkflowAction, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	for i := range ordered {
		ordered[i].Order = i
	}
	return ordered, nil
}

// validateCron 校验cron表达式与触发类型的匹配
func (s *WorkflowRuleService) validateCron(triggerType, cronExpr string) error {
	if triggerType == models.TriggerScheduled {
		if cronExpr == "" {
			return errors.New("scheduled触发类型需要cron表达式")
		}
		if err := workflow.ValidateCronExpr(cronExpr); err != nil {
			return fmt.Errorf("cron表达式无效: %v", err)
		}
		return nil
	}

	if cronExpr != "" {
		return fmt.Errorf("触发类型 %s 不支持cron表达式", triggerType)
	}
	return nil
}

// syncScheduler 保存后同步定时调度状态，失败只记录日志不影响保存结果
func (s *WorkflowRuleService) syncScheduler(ruleID uint) {
	scheduler := workflow.GetGlobalScheduler()
	if scheduler == nil {
		return
	}
	if err := scheduler.RefreshRule(ruleID); err != nil {
		logger.GetLogger().WithError(err).Errorf("同步规则 %d 的调度状态失败", ruleID)
	}
}

func isValidOperator(operator string) bool {
	for _, valid := range models.ValidOperators {
		if operator == valid {
			return true
		}
	}
	return false
}
