package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"firelater/internal/models"
	"firelater/internal/workflow"
	"firelater/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TicketService 工单服务
//
// 对外的变更入口（Create/Update/UpdateStatus/Assign）同步触发规则引擎；
// 同时实现workflow.TicketMutator作为动作派发的协作方，
// Mutator路径不再触发事件，避免规则之间相互递归。
type TicketService struct {
	db     *gorm.DB
	engine *workflow.Engine
}

// NewTicketService 创建工单服务
func NewTicketService(db *gorm.DB) *TicketService {
	return &TicketService{db: db}
}

// SetEngine 注入规则引擎（在引擎装配完成后调用）
func (s *TicketService) SetEngine(engine *workflow.Engine) {
	s.engine = engine
}

// CreateTicketRequest 创建工单请求
type CreateTicketRequest struct {
	Type        string            `json:"type" binding:"required,oneof=issue problem change request"`
	Title       string            `json:"title" binding:"required,max=500"`
	Description string            `json:"description"`
	Priority    string            `json:"priority" binding:"omitempty,oneof=critical high medium low"`
	Category    string            `json:"category" binding:"max=100"`
	Service     string            `json:"service" binding:"max=100"`
	Source      string            `json:"source" binding:"max=50"`
	Reporter    string            `json:"reporter" binding:"max=100"`
	Assignee    string            `json:"assignee" binding:"max=100"`
	Tags        []string          `json:"tags"`
	CustomData  map[string]string `json:"custom_data"`
}

// UpdateTicketRequest 更新工单请求
type UpdateTicketRequest struct {
	Title       string            `json:"title" binding:"max=500"`
	Description *string           `json:"description"`
	Priority    string            `json:"priority" binding:"omitempty,oneof=critical high medium low"`
	Category    *string           `json:"category"`
	Service     *string           `json:"service"`
	Tags        []string          `json:"tags"`
	CustomData  map[string]string `json:"custom_data"`
}

// TicketListFilter 工单列表过滤条件
type TicketListFilter struct {
	Type     string
	Status   string
	Priority string
	Assignee string
	Search   string
}

// Create 创建工单并触发on_create规则
func (s *TicketService) Create(req CreateTicketRequest, userID uint) (*models.Ticket, error) {
	ticket := &models.Ticket{
		ExternalID:  uuid.NewString(),
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TicketStatusOpen,
		Priority:    req.Priority,
		Category:    req.Category,
		Service:     req.Service,
		Source:      req.Source,
		Reporter:    req.Reporter,
		Assignee:    req.Assignee,
		Tags:        req.Tags,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if ticket.Priority == "" {
		ticket.Priority = models.TicketPriorityMedium
	}
	if len(req.CustomData) > 0 {
		data, err := json.Marshal(req.CustomData)
		if err != nil {
			return nil, fmt.Errorf("序列化自定义数据失败: %v", err)
		}
		ticket.CustomData = data
	}

	if err := s.db.Create(ticket).Error; err != nil {
		return nil, err
	}

	s.fireEvent(ticket, models.TriggerOnCreate)

	return s.GetByID(ticket.ID)
}

// GetByID 根据ID获取工单
func (s *TicketService) GetByID(id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := s.db.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("工单不存在")
		}
		return nil, err
	}
	return &ticket, nil
}

// List 工单列表
func (s *TicketService) List(params *pagination.PageParams, filter TicketListFilter) ([]models.Ticket, int64, error) {
	query := s.db.Model(&models.Ticket{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Assignee != "" {
		query = query.Where("assignee = ?", filter.Assignee)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tickets []models.Ticket
	err := query.Order("id DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&tickets).Error
	return tickets, total, err
}

// Update 更新工单并触发on_update规则
func (s *TicketService) Update(id uint, req UpdateTicketRequest, userID uint) (*models.Ticket, error) {
	ticket, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_by": userID,
		"updated_at": time.Now(),
	}
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != "" {
		updates["priority"] = req.Priority
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Service != nil {
		updates["service"] = *req.Service
	}
	if req.Tags != nil {
		updates["tags"] = models.StringArray(req.Tags)
	}
	if len(req.CustomData) > 0 {
		merged, err := s.mergeCustomData(ticket.CustomData, req.CustomData)
		if err != nil {
			return nil, err
		}
		updates["custom_data"] = merged
	}

	if err := s.db.Model(ticket).Updates(updates).Error; err != nil {
		return nil, err
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.fireEvent(updated, models.TriggerOnUpdate)

	return updated, nil
}

// UpdateStatus 工单状态流转并触发on_status_change规则
func (s *TicketService) UpdateStatus(id uint, status string, userID uint) (*models.Ticket, error) {
	if !isValidTicketStatus(status) {
		return nil, fmt.Errorf("无效的工单状态: %s", status)
	}

	ticket, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == status {
		return ticket, nil
	}

	if err := s.applyStatus(context.Background(), ticket, status, userID); err != nil {
		return nil, err
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.fireEvent(updated, models.TriggerOnStatusChange)

	return updated, nil
}

// Assign 指派工单并触发on_assignment规则
func (s *TicketService) Assign(id uint, assignee, group string, userID uint) (*models.Ticket, error) {
	if assignee == "" && group == "" {
		return nil, errors.New("处理人和处理组不能同时为空")
	}

	ticket, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_by": userID,
		"updated_at": time.Now(),
	}
	if assignee != "" {
		updates["assignee"] = assignee
	}
	if group != "" {
		updates["assigned_group"] = group
	}
	if err := s.db.Model(ticket).Updates(updates).Error; err != nil {
		return nil, err
	}

	updated, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.fireEvent(updated, models.TriggerOnAssignment)

	return updated, nil
}

// Delete 删除工单（历史执行日志保留）
func (s *TicketService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticket_id = ?", id).Delete(&models.TicketComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("ticket_id = ?", id).Delete(&models.TicketTask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Ticket{}, id).Error
	})
}

// AddUserComment 添加人工评论
func (s *TicketService) AddUserComment(id uint, author, content string) (*models.TicketComment, error) {
	if _, err := s.GetByID(id); err != nil {
		return nil, err
	}

	comment := &models.TicketComment{
		TicketID: id,
		Author:   author,
		Content:  content,
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments 工单评论列表
func (s *TicketService) ListComments(id uint) ([]models.TicketComment, error) {
	var comments []models.TicketComment
	err := s.db.Where("ticket_id = ?", id).Order("id ASC").Find(&comments).Error
	return comments, err
}

// ListTasks 工单后续任务列表
func (s *TicketService) ListTasks(id uint) ([]models.TicketTask, error) {
	var tasks []models.TicketTask
	err := s.db.Where("ticket_id = ?", id).Order("id ASC").Find(&tasks).Error
	return tasks, err
}

// fireEvent 同步触发规则引擎
func (s *TicketService) fireEvent(ticket *models.Ticket, triggerType string) {
	if s.engine == nil {
		return
	}
	ev := workflow.TicketEvent(ticket, triggerType)
	s.engine.Handle(context.Background(), ev)
}

// mergeCustomData 合并自定义数据
func (s *TicketService) mergeCustomData(existing datatypes.JSON, incoming map[string]string) (datatypes.JSON, error) {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, fmt.Errorf("解析自定义数据失败: %v", err)
		}
	}
	for key, value := range incoming {
		merged[key] = value
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("序列化自定义数据失败: %v", err)
	}
	return data, nil
}

// applyStatus 落库状态变更并维护时间戳（不触发事件）
func (s *TicketService) applyStatus(ctx context.Context, ticket *models.Ticket, status string, userID uint) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_by": userID,
		"updated_at": time.Now(),
	}
	now := time.Now()
	switch status {
	case models.TicketStatusResolved:
		updates["resolved_at"] = now
	case models.TicketStatusClosed:
		updates["closed_at"] = now
	}

	return s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", ticket.ID).Updates(updates).Error
}

func isValidTicketStatus(status string) bool {
	for _, valid := range models.ValidTicketStatuses {
		if status == valid {
			return true
		}
	}
	return false
}

func isValidTicketPriority(priority string) bool {
	for _, valid := range models.ValidTicketPriorities {
		if priority == valid {
			return true
		}
	}
	return false
}

// ========== workflow.TicketMutator 实现（动作派发专用，不触发事件） ==========

// 可由set_field动作直写的列
var settableTicketColumns = map[string]string{
	"title":       "title",
	"description": "description",
	"category":    "category",
	"service":     "service",
	"source":      "source",
	"reporter":    "reporter",
}

// SetField 设置工单字段
func (s *TicketService) SetField(ctx context.Context, entityID uint, field, value string) error {
	switch field {
	case "status":
		ticket, err := s.GetByID(entityID)
		if err != nil {
			return err
		}
		if !isValidTicketStatus(value) {
			return fmt.Errorf("无效的工单状态: %s", value)
		}
		return s.applyStatus(ctx, ticket, value, 0)
	case "priority":
		return s.ChangePriority(ctx, entityID, value)
	case "assignee":
		return s.AssignToUser(ctx, entityID, value)
	case "group":
		return s.AssignToGroup(ctx, entityID, value)
	}

	if column, ok := settableTicketColumns[field]; ok {
		return s.updateColumn(ctx, entityID, column, value)
	}

	// 目录外字段写入自定义数据
	ticket, err := s.GetByID(entityID)
	if err != nil {
		return err
	}
	merged, err := s.mergeCustomData(ticket.CustomData, map[string]string{field: value})
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, entityID, "custom_data", merged)
}

// AssignToUser 指派处理人
func (s *TicketService) AssignToUser(ctx context.Context, entityID uint, user string) error {
	if user == "" {
		return errors.New("处理人不能为空")
	}
	return s.updateColumn(ctx, entityID, "assignee", user)
}

// AssignToGroup 指派处理组
func (s *TicketService) AssignToGroup(ctx context.Context, entityID uint, group string) error {
	if group == "" {
		return errors.New("处理组不能为空")
	}
	return s.updateColumn(ctx, entityID, "assigned_group", group)
}

// ChangeStatus 状态流转
func (s *TicketService) ChangeStatus(ctx context.Context, entityID uint, status string) error {
	if !isValidTicketStatus(status) {
		return fmt.Errorf("无效的工单状态: %s", status)
	}
	ticket, err := s.GetByID(entityID)
	if err != nil {
		return err
	}
	return s.applyStatus(ctx, ticket, status, 0)
}

// ChangePriority 优先级调整
func (s *TicketService) ChangePriority(ctx context.Context, entityID uint, priority string) error {
	if !isValidTicketPriority(priority) {
		return fmt.Errorf("无效的工单优先级: %s", priority)
	}
	return s.updateColumn(ctx, entityID, "priority", priority)
}

// AddComment 添加系统评论
func (s *TicketService) AddComment(ctx context.Context, entityID uint, content string) error {
	if _, err := s.GetByID(entityID); err != nil {
		return err
	}
	comment := &models.TicketComment{
		TicketID: entityID,
		Author:   "workflow",
		Content:  content,
		IsSystem: true,
	}
	return s.db.WithContext(ctx).Create(comment).Error
}

// Escalate 升级：level为空时在当前级别上加1，否则设为指定级别
func (s *TicketService) Escalate(ctx context.Context, entityID uint, level string) error {
	ticket, err := s.GetByID(entityID)
	if err != nil {
		return err
	}

	target := ticket.EscalationLevel + 1
	if level != "" {
		parsed, err := strconv.Atoi(level)
		if err != nil || parsed < 0 {
			return fmt.Errorf("无效的升级级别: %s", level)
		}
		target = parsed
	}

	return s.updateColumn(ctx, entityID, "escalation_level", target)
}

// LinkToProblem 关联问题工单
func (s *TicketService) LinkToProblem(ctx context.Context, entityID uint, problemID string) error {
	parsed, err := strconv.ParseUint(problemID, 10, 32)
	if err != nil {
		return fmt.Errorf("无效的问题工单ID: %s", problemID)
	}

	var problem models.Ticket
	err = s.db.WithContext(ctx).
		Where("id = ? AND type = ?", uint(parsed), models.EntityTypeProblem).
		First(&problem).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("问题工单 %s 不存在", problemID)
		}
		return err
	}

	return s.updateColumn(ctx, entityID, "linked_problem_id", problem.ID)
}

// CreateTask 创建后续任务
func (s *TicketService) CreateTask(ctx context.Context, entityID uint, title, assignee string) error {
	if title == "" {
		return errors.New("任务标题不能为空")
	}
	if _, err := s.GetByID(entityID); err != nil {
		return err
	}

	task := &models.TicketTask{
		TicketID: entityID,
		Title:    title,
		Assignee: assignee,
	}
	return s.db.WithContext(ctx).Create(task).Error
}

// updateColumn 更新单列并校验工单存在
func (s *TicketService) updateColumn(ctx context.Context, entityID uint, column string, value interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Where("id = ?", entityID).
		Updates(map[string]interface{}{column: value, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("工单不存在")
	}
	return nil
}
