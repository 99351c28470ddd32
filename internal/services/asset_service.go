package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"firelater/internal/models"
	"firelater/pkg/pagination"

	"gorm.io/gorm"
)

// AssetService 资产服务
type AssetService struct {
	db *gorm.DB
}

// NewAssetService 创建资产服务
func NewAssetService(db *gorm.DB) *AssetService {
	return &AssetService{db: db}
}

// CreateAssetRequest 创建资产请求
type CreateAssetRequest struct {
	Name         string            `json:"name" binding:"required,max=200"`
	AssetTag     string            `json:"asset_tag" binding:"required,max=100"`
	Category     string            `json:"category" binding:"max=100"`
	Status       string            `json:"status" binding:"omitempty,oneof=in_use in_stock maintenance retired"`
	Location     string            `json:"location" binding:"max=200"`
	Owner        string            `json:"owner" binding:"max=100"`
	Manufacturer string            `json:"manufacturer" binding:"max=100"`
	Model        string            `json:"model" binding:"max=100"`
	SerialNumber string            `json:"serial_number" binding:"max=100"`
	PurchasedAt  *time.Time        `json:"purchased_at"`
	WarrantyEnd  *time.Time        `json:"warranty_end"`
	Description  string            `json:"description" binding:"max=500"`
	CustomData   map[string]string `json:"custom_data"`
}

// UpdateAssetRequest 更新资产请求
type UpdateAssetRequest struct {
	Name         string            `json:"name" binding:"max=200"`
	Category     *string           `json:"category"`
	Status       string            `json:"status" binding:"omitempty,oneof=in_use in_stock maintenance retired"`
	Location     *string           `json:"location"`
	Owner        *string           `json:"owner"`
	Manufacturer *string           `json:"manufacturer"`
	Model        *string           `json:"model"`
	SerialNumber *string           `json:"serial_number"`
	PurchasedAt  *time.Time        `json:"purchased_at"`
	WarrantyEnd  *time.Time        `json:"warranty_end"`
	Description  *string           `json:"description"`
	CustomData   map[string]string `json:"custom_data"`
}

// AssetListFilter 资产列表过滤条件
type AssetListFilter struct {
	Category string
	Status   string
	Owner    string
	Search   string
}

// Create 创建资产
func (s *AssetService) Create(req CreateAssetRequest, userID uint) (*models.Asset, error) {
	var count int64
	if err := s.db.Model(&models.Asset{}).Where("asset_tag = ?", req.AssetTag).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("资产编号已存在")
	}

	asset := &models.Asset{
		Name:         req.Name,
		AssetTag:     req.AssetTag,
		Category:     req.Category,
		Status:       req.Status,
		Location:     req.Location,
		Owner:        req.Owner,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		SerialNumber: req.SerialNumber,
		PurchasedAt:  req.PurchasedAt,
		WarrantyEnd:  req.WarrantyEnd,
		Description:  req.Description,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if asset.Status == "" {
		asset.Status = models.AssetStatusInUse
	}
	if len(req.CustomData) > 0 {
		data, err := json.Marshal(req.CustomData)
		if err != nil {
			return nil, fmt.Errorf("序列化自定义数据失败: %v", err)
		}
		asset.CustomData = data
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, err
	}
	return asset, nil
}

// GetByID 根据ID获取资产
func (s *AssetService) GetByID(id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("资产不存在")
		}
		return nil, err
	}
	return &asset, nil
}

// List 资产列表
func (s *AssetService) List(params *pagination.PageParams, filter AssetListFilter) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Owner != "" {
		query = query.Where("owner = ?", filter.Owner)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR asset_tag LIKE ? OR serial_number LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []models.Asset
	err := query.Order("id DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&assets).Error
	return assets, total, err
}

// Update 更新资产
func (s *AssetService) Update(id uint, req UpdateAssetRequest, userID uint) (*models.Asset, error) {
	asset, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_by": userID,
		"updated_at": time.Now(),
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Owner != nil {
		updates["owner"] = *req.Owner
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.SerialNumber != nil {
		updates["serial_number"] = *req.SerialNumber
	}
	if req.PurchasedAt != nil {
		updates["purchased_at"] = *req.PurchasedAt
	}
	if req.WarrantyEnd != nil {
		updates["warranty_end"] = *req.WarrantyEnd
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(req.CustomData) > 0 {
		data, err := json.Marshal(req.CustomData)
		if err != nil {
			return nil, fmt.Errorf("序列化自定义数据失败: %v", err)
		}
		updates["custom_data"] = data
	}

	if err := s.db.Model(asset).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete 删除资产
func (s *AssetService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}

	// 仍被云资源引用的资产不允许删除
	var count int64
	if err := s.db.Model(&models.CloudResource{}).Where("asset_id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("资产仍被云资源引用，无法删除")
	}

	return s.db.Delete(&models.Asset{}, id).Error
}
