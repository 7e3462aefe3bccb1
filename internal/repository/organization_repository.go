package repository

import (
	"github.com/ashwinyue/donor-ai/internal/model"
	"gorm.io/gorm"
)

// OrganizationRepository 组织数据访问
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository 创建组织仓库
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create 创建组织
func (r *OrganizationRepository) Create(org *model.Organization) error {
	return r.db.Create(org).Error
}

// GetByID 获取组织
func (r *OrganizationRepository) GetByID(id string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Update 更新组织
func (r *OrganizationRepository) Update(org *model.Organization) error {
	return r.db.Save(org).Error
}

// ListMemoryNotes 列出组织记忆条目
func (r *OrganizationRepository) ListMemoryNotes(orgID string, limit int) ([]*model.MemoryNote, error) {
	var notes []*model.MemoryNote
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notes).Error
	return notes, err
}

// AddMemoryNote 追加组织记忆条目
func (r *OrganizationRepository) AddMemoryNote(note *model.MemoryNote) error {
	return r.db.Create(note).Error
}
