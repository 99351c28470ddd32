package models

import (
	"time"

	"gorm.io/datatypes"
)

// Asset 资产模型
type Asset struct {
	BaseModel

	// 核心字段
	Name     string `gorm:"size:200;not null" json:"name"`
	AssetTag string `gorm:"size:100;not null;uniqueIndex" json:"asset_tag"` // 资产编号
	Category string `gorm:"size:100;index" json:"category"`                 // server/laptop/network/software
	Status   string `gorm:"size:20;default:'in_use';index" json:"status"`   // in_use/in_stock/maintenance/retired

	// 位置与归属
	Location string `gorm:"size:200" json:"location"`
	Owner    string `gorm:"size:100" json:"owner"` // 责任人

	// 硬件信息
	Manufacturer string     `gorm:"size:100" json:"manufacturer"`
	Model        string     `gorm:"size:100" json:"model"`
	SerialNumber string     `gorm:"size:100" json:"serial_number"`
	PurchasedAt  *time.Time `json:"purchased_at"`
	WarrantyEnd  *time.Time `json:"warranty_end"`

	// 扩展信息
	Description string         `gorm:"size:500" json:"description"`
	CustomData  datatypes.JSON `gorm:"type:jsonb" json:"custom_data"`

	// 审计
	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`
}

// TableName 指定表名
func (Asset) TableName() string {
	return "assets"
}

// 资产状态常量
const (
	AssetStatusInUse       = "in_use"
	AssetStatusInStock     = "in_stock"
	AssetStatusMaintenance = "maintenance"
	AssetStatusRetired     = "retired"
)
