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

// CloudResourceService 云资源服务
type CloudResourceService struct {
	db *gorm.DB
}

// NewCloudResourceService 创建云资源服务
func NewCloudResourceService(db *gorm.DB) *CloudResourceService {
	return &CloudResourceService{db: db}
}

// CreateCloudResourceRequest 登记云资源请求
type CreateCloudResourceRequest struct {
	Name         string            `json:"name" binding:"required,max=200"`
	Provider     string            `json:"provider" binding:"required,max=50"`
	Region       string            `json:"region" binding:"max=50"`
	ResourceType string            `json:"resource_type" binding:"required,max=100"`
	ExternalID   string            `json:"external_id" binding:"required,max=200"`
	Status       string            `json:"status" binding:"omitempty,oneof=running stopped terminated"`
	AssetID      *uint             `json:"asset_id"`
	Metadata     map[string]string `json:"metadata"`
}

// UpdateCloudResourceRequest 更新云资源请求
type UpdateCloudResourceRequest struct {
	Name     string            `json:"name" binding:"max=200"`
	Region   *string           `json:"region"`
	Status   string            `json:"status" binding:"omitempty,oneof=running stopped terminated"`
	AssetID  *uint             `json:"asset_id"`
	Metadata map[string]string `json:"metadata"`
}

// CloudResourceListFilter 云资源列表过滤条件
type CloudResourceListFilter struct {
	Provider     string
	Region       string
	ResourceType string
	Status       string
	Search       string
}

// Create 登记云资源
func (s *CloudResourceService) Create(req CreateCloudResourceRequest, userID uint) (*models.CloudResource, error) {
	var count int64
	err := s.db.Model(&models.CloudResource{}).
		Where("provider = ? AND external_id = ?", req.Provider, req.ExternalID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("该云资源已登记")
	}

	if req.AssetID != nil {
		if err := s.checkAsset(*req.AssetID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	resource := &models.CloudResource{
		Name:         req.Name,
		Provider:     req.Provider,
		Region:       req.Region,
		ResourceType: req.ResourceType,
		ExternalID:   req.ExternalID,
		Status:       req.Status,
		AssetID:      req.AssetID,
		LastSyncedAt: &now,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if resource.Status == "" {
		resource.Status = models.CloudResourceStatusRunning
	}
	if len(req.Metadata) > 0 {
		data, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("序列化元数据失败: %v", err)
		}
		resource.Metadata = data
	}

	if err := s.db.Create(resource).Error; err != nil {
		return nil, err
	}
	return resource, nil
}

// GetByID 根据ID获取云资源
func (s *CloudResourceService) GetByID(id uint) (*models.CloudResource, error) {
	var resource models.CloudResource
	if err := s.db.Preload("Asset").First(&resource, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("云资源不存在")
		}
		return nil, err
	}
	return &resource, nil
}

// List 云资源列表
func (s *CloudResourceService) List(params *pagination.PageParams, filter CloudResourceListFilter) ([]models.CloudResource, int64, error) {
	query := s.db.Model(&models.CloudResource{})
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR external_id LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var resources []models.CloudResource
	err := query.Preload("Asset").
		Order("id DESC").
		Offset(params.GetOffset()).
		Limit(params.GetLimit()).
		Find(&resources).Error
	return resources, total, err
}

// Update 更新云资源（provider与external_id登记后不可变）
func (s *CloudResourceService) Update(id uint, req UpdateCloudResourceRequest, userID uint) (*models.CloudResource, error) {
	resource, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"updated_by":     userID,
		"updated_at":     time.Now(),
		"last_synced_at": time.Now(),
	}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Region != nil {
		updates["region"] = *req.Region
	}
	if req.Status != "" {
		updates["status"] = req.Status
	}
	if req.AssetID != nil {
		if err := s.checkAsset(*req.AssetID); err != nil {
			return nil, err
		}
		updates["asset_id"] = *req.AssetID
	}
	if len(req.Metadata) > 0 {
		data, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("序列化元数据失败: %v", err)
		}
		updates["metadata"] = data
	}

	if err := s.db.Model(resource).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// Delete 删除云资源
func (s *CloudResourceService) Delete(id uint) error {
	if _, err := s.GetByID(id); err != nil {
		return err
	}
	return s.db.Delete(&models.CloudResource{}, id).Error
}

// checkAsset 校验关联资产存在
func (s *CloudResourceService) checkAsset(assetID uint) error {
	var count int64
	if err := s.db.Model(&models.Asset{}).Where("id = ?", assetID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errors.New("关联的资产不存在")
	}
	return nil
}
