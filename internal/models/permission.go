package models

// Permission 权限模型
type Permission struct {
	BaseModel
	Code        string `gorm:"uniqueIndex;size:100;not null" json:"code"` // 权限代码，如 "ticket:create"
	Name        string `gorm:"size:100;not null" json:"name"`             // 权限名称，如 "创建工单"
	Description string `gorm:"size:255" json:"description"`               // 权限描述
	Module      string `gorm:"size:50;not null" json:"module"`            // 所属模块，如 "ticket", "workflow"
	Action      string `gorm:"size:50;not null" json:"action"`            // 操作类型，如 "create", "read"
}

// 权限模块常量
const (
	ModuleUser          = "user"           // 用户管理
	ModuleRole          = "role"           // 角色管理
	ModuleTicket        = "ticket"         // 工单管理
	ModuleAsset         = "asset"          // 资产管理
	ModuleCloudResource = "cloud_resource" // 云资源管理
	ModuleWorkflow      = "workflow"       // 工作流自动化
)

// 权限操作常量
const (
	ActionCreate  = "create"  // 创建
	ActionRead    = "read"    // 读取
	ActionUpdate  = "update"  // 更新
	ActionDelete  = "delete"  // 删除
	ActionList    = "list"    // 列表
	ActionExecute = "execute" // 执行
)
