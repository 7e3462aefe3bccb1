package repository

import (
	"github.com/ashwinyue/donor-ai/internal/model"
	"gorm.io/gorm"
)

// DonorRepository 捐赠人数据访问
type DonorRepository struct {
	db *gorm.DB
}

// NewDonorRepository 创建捐赠人仓库
func NewDonorRepository(db *gorm.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// Create 创建捐赠人
func (r *DonorRepository) Create(donor *model.Donor) error {
	return r.db.Create(donor).Error
}

// GetByID 获取捐赠人
func (r *DonorRepository) GetByID(id string) (*model.Donor, error) {
	var donor model.Donor
	err := r.db.Where("id = ?", id).First(&donor).Error
	if err != nil {
		return nil, err
	}
	return &donor, nil
}

// ListByIDs 按 ID 集合获取捐赠人
func (r *DonorRepository) ListByIDs(ids []string) ([]*model.Donor, error) {
	var donors []*model.Donor
	err := r.db.Where("id IN ?", ids).Find(&donors).Error
	return donors, err
}

// ListByOrganization 列出组织下的捐赠人
func (r *DonorRepository) ListByOrganization(orgID string, offset, limit int) ([]*model.Donor, error) {
	var donors []*model.Donor
	err := r.db.Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&donors).Error
	return donors, err
}

// Update 更新捐赠人
func (r *DonorRepository) Update(donor *model.Donor) error {
	return r.db.Save(donor).Error
}

// Delete 删除捐赠人
func (r *DonorRepository) Delete(id string) error {
	return r.db.Delete(&model.Donor{}, "id = ?", id).Error
}

// GetDonationsByDonorID 获取捐赠记录（按时间倒序）
func (r *DonorRepository) GetDonationsByDonorID(donorID string) ([]*model.Donation, error) {
	var donations []*model.Donation
	err := r.db.Where("donor_id = ?", donorID).Order("donated_at DESC").Find(&donations).Error
	return donations, err
}

// GetCommunicationsByDonorID 获取最近的沟通记录
func (r *DonorRepository) GetCommunicationsByDonorID(donorID string, limit int) ([]*model.Communication, error) {
	var comms []*model.Communication
	err := r.db.Where("donor_id = ?", donorID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&comms).Error
	return comms, err
}

// GetInsightsByDonorID 获取调研洞察
func (r *DonorRepository) GetInsightsByDonorID(donorID string) ([]*model.ResearchInsight, error) {
	var insights []*model.ResearchInsight
	err := r.db.Where("donor_id = ?", donorID).Order("created_at DESC").Find(&insights).Error
	return insights, err
}
