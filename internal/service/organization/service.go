package organization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/repository"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// memoryNoteLimit 汇总时取记忆条目的条数
const memoryNoteLimit = 20

// PromptInvalidator 组织资料变更时失效系统提示词缓存
type PromptInvalidator interface {
	Invalidate(ctx context.Context, orgID string) error
}

// Service 组织服务
type Service struct {
	repo        *repository.Repositories
	invalidator PromptInvalidator
}

// NewService 创建组织服务
func NewService(repo *repository.Repositories) *Service {
	return &Service{repo: repo}
}

// SetPromptInvalidator 注入提示词缓存失效器（装配时调用）
func (s *Service) SetPromptInvalidator(inv PromptInvalidator) {
	s.invalidator = inv
}

// GetOrganization 获取组织
func (s *Service) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	org, err := s.repo.Organization.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: organization %s", types.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	return org, nil
}

// UpdateOrganizationRequest 更新组织资料请求
type UpdateOrganizationRequest struct {
	Name              string   `json:"name"`
	Mission           string   `json:"mission"`
	WritingGuidelines string   `json:"writing_guidelines"`
	Tone              string   `json:"tone"`
	Topics            []string `json:"topics"`
}

// UpdateOrganization 更新组织资料并失效提示词缓存
func (s *Service) UpdateOrganization(ctx context.Context, id string, req *UpdateOrganizationRequest) (*model.Organization, error) {
	org, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		org.Name = req.Name
	}
	if req.Mission != "" {
		org.Mission = req.Mission
	}
	if req.WritingGuidelines != "" {
		org.WritingGuidelines = req.WritingGuidelines
	}
	if req.Tone != "" {
		org.Tone = req.Tone
	}
	if len(req.Topics) > 0 {
		topicsJSON, err := json.Marshal(req.Topics)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal topics: %w", err)
		}
		org.Topics = string(topicsJSON)
	}

	if err := s.repo.Organization.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	// 资料变了，缓存的系统提示词随之失效
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, id); err != nil {
			log.Printf("Warning: failed to invalidate prompt cache for org %s: %v", id, err)
		}
	}

	return org, nil
}

// AddMemoryNoteRequest 追加记忆条目请求
type AddMemoryNoteRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddMemoryNote 追加组织记忆条目
func (s *Service) AddMemoryNote(ctx context.Context, orgID string, req *AddMemoryNoteRequest) (*model.MemoryNote, error) {
	note := &model.MemoryNote{
		ID:             uuid.New().String(),
		OrganizationID: orgID,
		Content:        req.Content,
	}

	if err := s.repo.Organization.AddMemoryNote(note); err != nil {
		return nil, fmt.Errorf("failed to add memory note: %w", err)
	}

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, orgID); err != nil {
			log.Printf("Warning: failed to invalidate prompt cache for org %s: %v", orgID, err)
		}
	}

	return note, nil
}

// ListMemoryNotes 列出组织记忆条目
func (s *Service) ListMemoryNotes(ctx context.Context, orgID string) ([]*model.MemoryNote, error) {
	return s.repo.Organization.ListMemoryNotes(orgID, memoryNoteLimit)
}

// ========== 组织上下文汇总 ==========

// Context 供提示词与工具使用的组织上下文
type Context struct {
	Name              string   `json:"name"`
	Mission           string   `json:"mission"`
	WritingGuidelines string   `json:"writing_guidelines"`
	Tone              string   `json:"tone"`
	Topics            []string `json:"topics"`
	MemoryNotes       []string `json:"memory_notes"`
}

// BuildContext 汇总组织使命、写作规范、语气话题与记忆条目
func (s *Service) BuildContext(ctx context.Context, orgID string) (*Context, error) {
	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	notes, err := s.repo.Organization.ListMemoryNotes(orgID, memoryNoteLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: load memory notes: %v", types.ErrInternal, err)
	}

	out := &Context{
		Name:              org.Name,
		Mission:           org.Mission,
		WritingGuidelines: org.WritingGuidelines,
		Tone:              org.Tone,
	}
	if out.Tone == "" {
		out.Tone = "warm and personal"
	}

	if org.Topics != "" {
		if err := json.Unmarshal([]byte(org.Topics), &out.Topics); err != nil {
			// 坏数据不致命，退化为空话题列表
			log.Printf("Warning: invalid topics JSON for org %s: %v", orgID, err)
		}
	}

	for _, note := range notes {
		out.MemoryNotes = append(out.MemoryNotes, note.Content)
	}

	return out, nil
}
