// Package email 基于定稿指令为每个捐赠人生成个性化邮件
package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/google/uuid"
	"gorm.io/gorm"

	appmodel "github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/repository"
	"github.com/ashwinyue/donor-ai/internal/service/donor"
	"github.com/ashwinyue/donor-ai/internal/service/llm"
	"github.com/ashwinyue/donor-ai/internal/service/organization"
	"github.com/ashwinyue/donor-ai/internal/service/review"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// generateConcurrency 同时生成邮件的捐赠人数上限
const generateConcurrency = 4

const generateSystemPrompt = `You are an expert fundraising copywriter for nonprofits.
Write one personalized email for the given donor following the generation instruction exactly.
Use the donor's history and the organization's voice. Never invent donation amounts or events.
Respond as JSON: {"subject": string, "content": string}.`

// emailOutput 生成的结构化输出
type emailOutput struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// Validate 校验生成结果
func (e *emailOutput) Validate() error {
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("subject is empty")
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("content is empty")
	}
	return nil
}

// Service 邮件生成服务
type Service struct {
	repo        *repository.Repositories
	donors      *donor.Service
	orgs        *organization.Service
	reviewer    *review.Reviewer
	cm          model.BaseChatModel
	maxAttempts int           // 生成-审查循环最大尝试次数
	timeout     time.Duration // 单次补全超时
}

// NewService 创建邮件生成服务
func NewService(repo *repository.Repositories, donors *donor.Service, orgs *organization.Service, reviewer *review.Reviewer, cm model.BaseChatModel, maxAttempts int, timeout time.Duration) *Service {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Service{
		repo:        repo,
		donors:      donors,
		orgs:        orgs,
		reviewer:    reviewer,
		cm:          cm,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}
}

// GenerateForSession 按会话的定稿指令为每个捐赠人生成邮件
// 捐赠人之间并发（有并发上限）；单个捐赠人失败不影响其他捐赠人
func (s *Service) GenerateForSession(ctx context.Context, orgID, userID, sessionID string) ([]*appmodel.GeneratedEmail, error) {
	session, err := s.repo.Session.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", types.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	if session.OrganizationID != orgID || session.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", types.ErrUnauthorized, sessionID)
	}
	if session.FinalInstruction == "" {
		return nil, fmt.Errorf("%w: instruction has not been finalized", types.ErrBadRequest)
	}

	var donorIDs []string
	if err := json.Unmarshal([]byte(session.DonorIDs), &donorIDs); err != nil {
		return nil, fmt.Errorf("%w: corrupt donor list: %v", types.ErrInternal, err)
	}
	if len(donorIDs) == 0 {
		return nil, fmt.Errorf("%w: session has no donors", types.ErrBadRequest)
	}

	orgCtx, err := s.orgs.BuildContext(ctx, orgID)
	if err != nil {
		return nil, err
	}

	// 对话记录是审查的合规依据之一
	messages, err := s.repo.Session.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load messages: %v", types.ErrInternal, err)
	}
	chatHistory := conversationLog(messages)

	emails := make([]*appmodel.GeneratedEmail, len(donorIDs))
	errs := make([]error, len(donorIDs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, generateConcurrency)
	for i, donorID := range donorIDs {
		wg.Add(1)
		go func(i int, donorID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			emails[i], errs[i] = s.generateOne(ctx, session, orgCtx, chatHistory, donorID)
		}(i, donorID)
	}
	wg.Wait()

	out := make([]*appmodel.GeneratedEmail, 0, len(donorIDs))
	var firstErr error
	for i, email := range emails {
		if errs[i] != nil {
			log.Printf("Email generation failed for donor %s in session %s: %v", donorIDs[i], sessionID, errs[i])
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out = append(out, email)
	}

	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// ListBySession 列出会话生成的邮件（带归属校验）
func (s *Service) ListBySession(ctx context.Context, orgID, userID, sessionID string) ([]*appmodel.GeneratedEmail, error) {
	session, err := s.repo.Session.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: session %s", types.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	if session.OrganizationID != orgID || session.UserID != userID {
		return nil, fmt.Errorf("%w: session %s", types.ErrUnauthorized, sessionID)
	}
	return s.repo.Email.ListBySessionID(sessionID)
}

// conversationLog 把会话消息拍平为审查用的对话记录
func conversationLog(messages []*appmodel.EmailMessage) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// generateOne 为单个捐赠人执行生成-审查循环
// 审查不通过时带反馈重新生成；尝试耗尽仍不通过则标记 unverified 而不是失败
func (s *Service) generateOne(ctx context.Context, session *appmodel.EmailSession, orgCtx *organization.Context, chatHistory, donorID string) (*appmodel.GeneratedEmail, error) {
	brief, err := s.donors.BuildBrief(ctx, session.OrganizationID, donorID)
	if err != nil {
		return nil, err
	}
	briefJSON, err := json.Marshal(brief)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	orgJSON, err := json.Marshal(orgCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}

	basePrompt := fmt.Sprintf(
		"Generation instruction:\n%s\n\nOrganization:\n%s\n\nDonor profile:\n%s",
		session.FinalInstruction, orgJSON, briefJSON,
	)

	var draft *types.EmailDraft
	var lastFeedback string
	status := appmodel.EmailStatusUnverified
	attempts := 0

	for attempts < s.maxAttempts {
		attempts++

		prompt := basePrompt
		if lastFeedback != "" {
			prompt += "\n\nYour previous draft was rejected by review with this feedback, address it:\n" + lastFeedback
		}

		out, err := llm.GenerateObject[emailOutput](ctx, s.cm, generateSystemPrompt, prompt, s.timeout)
		if err != nil {
			return nil, err
		}
		draft = &types.EmailDraft{
			DonorID: donorID,
			Subject: out.Subject,
			Content: out.Content,
		}

		verdict, err := s.reviewer.Review(ctx, session.FinalInstruction, chatHistory, orgCtx.WritingGuidelines, draft)
		if err != nil {
			// 审查不可用时不丢弃草稿，按未核验放行
			log.Printf("Warning: review unavailable for donor %s: %v", donorID, err)
			lastFeedback = "review unavailable"
			break
		}
		if verdict.Result == types.ReviewOK {
			status = appmodel.EmailStatusReviewed
			lastFeedback = ""
			break
		}
		lastFeedback = verdict.Feedback
	}

	email := &appmodel.GeneratedEmail{
		ID:             uuid.New().String(),
		SessionID:      session.ID,
		DonorID:        donorID,
		Subject:        draft.Subject,
		Content:        draft.Content,
		Status:         status,
		ReviewFeedback: lastFeedback,
		Attempts:       attempts,
	}
	if err := s.repo.Email.Create(email); err != nil {
		return nil, fmt.Errorf("%w: failed to save generated email: %v", types.ErrInternal, err)
	}
	return email, nil
}
