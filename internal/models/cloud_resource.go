package models

import (
	"time"

	"gorm.io/datatypes"
)

// CloudResource 云资源映射模型
type CloudResource struct {
	BaseModel

	// 核心字段
	Name         string `gorm:"size:200;not null" json:"name"`
	Provider     string `gorm:"size:50;not null;uniqueIndex:idx_provider_external" json:"provider"` // aws/azure/gcp/aliyun
	Region       string `gorm:"size:50;index" json:"region"`                 // 区域
	ResourceType string `gorm:"size:100;not null;index" json:"resource_type"` // vm/database/bucket/loadbalancer
	ExternalID   string `gorm:"size:200;not null;uniqueIndex:idx_provider_external" json:"external_id"`

	// 状态
	Status       string     `gorm:"size:20;default:'running';index" json:"status"` // running/stopped/terminated
	LastSyncedAt *time.Time `json:"last_synced_at"`

	// 资产关联
	AssetID *uint  `gorm:"index" json:"asset_id"`
	Asset   *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`

	// 扩展信息
	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata"` // 云厂商原始元数据

	// 审计
	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`
}

// TableName 指定表名
func (CloudResource) TableName() string {
	return "cloud_resources"
}

// 云资源状态常量
const (
	CloudResourceStatusRunning    = "running"
	CloudResourceStatusStopped    = "stopped"
	CloudResourceStatusTerminated = "terminated"
)
