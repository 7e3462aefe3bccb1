package donor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/repository"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// recentCommunicationLimit 汇总时取最近沟通记录的条数
const recentCommunicationLimit = 5

// Service 捐赠人服务
type Service struct {
	repo *repository.Repositories
}

// NewService 创建捐赠人服务
func NewService(repo *repository.Repositories) *Service {
	return &Service{repo: repo}
}

// CreateDonorRequest 创建捐赠人请求
type CreateDonorRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Notes     string `json:"notes"`
}

// CreateDonor 创建捐赠人
func (s *Service) CreateDonor(ctx context.Context, orgID string, req *CreateDonorRequest) (*model.Donor, error) {
	donor := &model.Donor{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		Notes:          req.Notes,
		IsActive:       true,
	}

	if err := s.repo.Donor.Create(donor); err != nil {
		return nil, fmt.Errorf("failed to create donor: %w", err)
	}

	return donor, nil
}

// GetDonor 获取捐赠人（带归属校验）
func (s *Service) GetDonor(ctx context.Context, orgID, id string) (*model.Donor, error) {
	donor, err := s.repo.Donor.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: donor %s", types.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	if donor.OrganizationID != orgID {
		return nil, fmt.Errorf("%w: donor %s", types.ErrUnauthorized, id)
	}
	return donor, nil
}

// ListDonors 列出组织下的捐赠人
func (s *Service) ListDonors(ctx context.Context, orgID string, page, size int) ([]*model.Donor, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size
	return s.repo.Donor.ListByOrganization(orgID, offset, size)
}

// UpdateDonor 更新捐赠人
func (s *Service) UpdateDonor(ctx context.Context, orgID, id string, req *CreateDonorRequest) (*model.Donor, error) {
	donor, err := s.GetDonor(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	donor.FirstName = req.FirstName
	donor.LastName = req.LastName
	if req.Email != "" {
		donor.Email = req.Email
	}
	if req.Phone != "" {
		donor.Phone = req.Phone
	}
	if req.Notes != "" {
		donor.Notes = req.Notes
	}

	if err := s.repo.Donor.Update(donor); err != nil {
		return nil, fmt.Errorf("failed to update donor: %w", err)
	}

	return donor, nil
}

// DeleteDonor 删除捐赠人
func (s *Service) DeleteDonor(ctx context.Context, orgID, id string) error {
	if _, err := s.GetDonor(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.repo.Donor.Delete(id); err != nil {
		return fmt.Errorf("failed to delete donor: %w", err)
	}
	return nil
}

// ========== 捐赠人画像汇总 ==========

// Stats 捐赠统计
type Stats struct {
	DonationCount int       `json:"donation_count"`
	TotalCents    int64     `json:"total_cents"`
	AverageCents  int64     `json:"average_cents"`
	LastGiftAt    time.Time `json:"last_gift_at"`
	IsRecurring   bool      `json:"is_recurring"`
}

// Brief 供邮件生成使用的捐赠人画像
type Brief struct {
	Donor          *model.Donor             `json:"donor"`
	Stats          Stats                    `json:"stats"`
	Donations      []*model.Donation        `json:"donations"`
	Communications []*model.Communication   `json:"communications"`
	Insights       []*model.ResearchInsight `json:"insights"`
}

// BuildBrief 汇总单个捐赠人的捐赠历史、沟通历史、调研洞察和统计
func (s *Service) BuildBrief(ctx context.Context, orgID, donorID string) (*Brief, error) {
	donor, err := s.GetDonor(ctx, orgID, donorID)
	if err != nil {
		return nil, err
	}

	donations, err := s.repo.Donor.GetDonationsByDonorID(donorID)
	if err != nil {
		return nil, fmt.Errorf("%w: load donations: %v", types.ErrInternal, err)
	}

	comms, err := s.repo.Donor.GetCommunicationsByDonorID(donorID, recentCommunicationLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: load communications: %v", types.ErrInternal, err)
	}

	insights, err := s.repo.Donor.GetInsightsByDonorID(donorID)
	if err != nil {
		return nil, fmt.Errorf("%w: load insights: %v", types.ErrInternal, err)
	}

	return &Brief{
		Donor:          donor,
		Stats:          computeStats(donations, time.Now()),
		Donations:      donations,
		Communications: comms,
		Insights:       insights,
	}, nil
}

// computeStats 计算捐赠统计
// 周期性捐赠启发式：最近 12 个月内有 3 次以上捐赠
func computeStats(donations []*model.Donation, now time.Time) Stats {
	stats := Stats{DonationCount: len(donations)}
	if len(donations) == 0 {
		return stats
	}

	recentCount := 0
	yearAgo := now.AddDate(-1, 0, 0)
	for _, d := range donations {
		stats.TotalCents += d.AmountCent
		if d.DonatedAt.After(stats.LastGiftAt) {
			stats.LastGiftAt = d.DonatedAt
		}
		if d.DonatedAt.After(yearAgo) {
			recentCount++
		}
	}

	stats.AverageCents = stats.TotalCents / int64(len(donations))
	stats.IsRecurring = recentCount >= 3

	return stats
}
