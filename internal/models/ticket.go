package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Ticket 工单（issue/problem/change/request四类实体共用一张表）
type Ticket struct {
	BaseModel
	ExternalID string `gorm:"size:36;uniqueIndex" json:"external_id"` // 对外展示的UUID编号

	// 核心字段
	Type        string `gorm:"size:20;not null;index" json:"type"`    // issue/problem/change/request
	Title       string `gorm:"size:500;not null" json:"title"`        // 标题
	Description string `gorm:"type:text" json:"description"`          // 详细描述
	Status      string `gorm:"size:50;not null;index" json:"status"`  // open/in_progress/pending/resolved/closed
	Priority    string `gorm:"size:20;index" json:"priority"`         // critical/high/medium/low

	// 人员信息
	Reporter      string `gorm:"size:100" json:"reporter"`       // 报告人
	Assignee      string `gorm:"size:100;index" json:"assignee"` // 处理人
	AssignedGroup string `gorm:"size:100" json:"assigned_group"` // 处理组

	// 分类信息
	Category string `gorm:"size:100;index" json:"category"` // 分类
	Service  string `gorm:"size:100;index" json:"service"`  // 影响的服务
	Source   string `gorm:"size:50" json:"source"`          // 来源渠道 portal/email/phone/monitoring

	// 升级与关联
	EscalationLevel int   `gorm:"default:0" json:"escalation_level"` // 升级级别
	LinkedProblemID *uint `gorm:"index" json:"linked_problem_id"`    // 关联的问题工单

	// 时间信息
	ResolvedAt *time.Time `json:"resolved_at"`
	ClosedAt   *time.Time `json:"closed_at"`

	// 扩展信息
	Tags       StringArray    `gorm:"type:text" json:"tags"`         // 标签
	CustomData datatypes.JSON `gorm:"type:jsonb" json:"custom_data"` // 自定义数据

	// 审计
	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`
}

// TableName 指定表名
func (Ticket) TableName() string {
	return "tickets"
}

// TicketComment 工单评论
type TicketComment struct {
	BaseModel
	TicketID uint   `gorm:"not null;index" json:"ticket_id"`
	Author   string `gorm:"size:100;not null" json:"author"` // 评论人（自动化规则写入时为 workflow）
	Content  string `gorm:"type:text;not null" json:"content"`
	IsSystem bool   `gorm:"default:false" json:"is_system"` // 是否为系统（规则）生成

	// 关联
	Ticket *Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}

// TableName 指定表名
func (TicketComment) TableName() string {
	return "ticket_comments"
}

// TicketTask 工单后续任务（create_task动作产物）
type TicketTask struct {
	BaseModel
	TicketID uint   `gorm:"not null;index" json:"ticket_id"`
	Title    string `gorm:"size:500;not null" json:"title"`
	Assignee string `gorm:"size:100" json:"assignee"`
	Status   string `gorm:"size:20;default:'open'" json:"status"` // open/done

	// 关联
	Ticket *Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
}

// TableName 指定表名
func (TicketTask) TableName() string {
	return "ticket_tasks"
}

// 工单状态常量
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusPending    = "pending"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// 工单优先级常量
const (
	TicketPriorityCritical = "critical"
	TicketPriorityHigh     = "high"
	TicketPriorityMedium   = "medium"
	TicketPriorityLow      = "low"
)

// ValidTicketStatuses 全部工单状态
var ValidTicketStatuses = []string{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusClosed,
}

// ValidTicketPriorities 全部工单优先级
var ValidTicketPriorities = []string{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityMedium,
	TicketPriorityLow,
}

// StringArray 逗号分隔存储的字符串数组
type StringArray []string

// Value 实现driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "", nil
	}
	return strings.Join(a, ","), nil
}

// Scan 实现sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("无法将 %T 扫描为StringArray", value)
	}

	if str == "" {
		*a = nil
		return nil
	}
	*a = strings.Split(str, ",")
	return nil
}
