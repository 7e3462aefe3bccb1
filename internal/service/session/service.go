// Package session 实现邮件会话生命周期：创建、续轮、查询、放弃、恢复与过期清理
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/donor-ai/internal/config"
	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/repository"
	"github.com/ashwinyue/donor-ai/internal/service/agent"
	"github.com/ashwinyue/donor-ai/internal/service/donor"
	"github.com/ashwinyue/donor-ai/internal/service/tools"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// retryBackoff 服务层重试的基础退避时长
const retryBackoff = 500 * time.Millisecond

// Service 邮件会话服务
type Service struct {
	repo         *repository.Repositories
	orchestrator *agent.Orchestrator
	donorService *donor.Service
	cfg          *config.SessionConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex // 按会话串行化续轮，并让清理跳过进行中的会话
}

// NewService 创建会话服务
func NewService(repo *repository.Repositories, orchestrator *agent.Orchestrator, donorService *donor.Service, cfg *config.SessionConfig) *Service {
	return &Service{
		repo:         repo,
		orchestrator: orchestrator,
		donorService: donorService,
		cfg:          cfg,
		locks:        make(map[string]*sync.Mutex),
	}
}

// sessionLock 获取会话级互斥锁
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// releaseLock 会话终结后移除锁表项
func (s *Service) releaseLock(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, sessionID)
}

// ========== 请求与响应 ==========

// StartSessionRequest 创建会话请求
type StartSessionRequest struct {
	DonorIDs    []string `json:"donor_ids" binding:"required"`
	Instruction string   `json:"instruction" binding:"required"`
}

// TurnResult 单轮编排结果
type TurnResult struct {
	SessionID      string             `json:"session_id"`
	Status         string             `json:"status"`
	Step           string             `json:"step"`
	Reply          string             `json:"reply"`
	ToolCalls      []types.ToolCall   `json:"tool_calls,omitempty"`
	ToolResults    []types.ToolResult `json:"tool_results,omitempty"`
	ShouldContinue bool               `json:"should_continue"`

	// FinalInstruction 会话完成后才有值
	FinalInstruction string `json:"final_instruction,omitempty"`
}

// State 会话快照
type State struct {
	Session  *model.EmailSession   `json:"session"`
	Messages []*model.EmailMessage `json:"messages"`
}

// ========== 生命周期操作 ==========

// StartSession 创建会话并处理首轮
// 编排失败时删除刚建的会话行，不留半成品
func (s *Service) StartSession(ctx context.Context, orgID, userID string, req *StartSessionRequest) (*TurnResult, error) {
	if len(req.DonorIDs) == 0 {
		return nil, fmt.Errorf("%w: donor_ids must not be empty", types.ErrBadRequest)
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, fmt.Errorf("%w: instruction must not be empty", types.ErrBadRequest)
	}

	// 校验捐赠人存在且归属当前组织
	for _, id := range req.DonorIDs {
		if _, err := s.donorService.GetDonor(ctx, orgID, id); err != nil {
			if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrUnauthorized) {
				return nil, fmt.Errorf("%w: invalid donor %s", types.ErrBadRequest, id)
			}
			return nil, err
		}
	}

	donorIDsJSON, err := json.Marshal(req.DonorIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}

	session := &model.EmailSession{
		ID:                 uuid.New().String(),
		OrganizationID:     orgID,
		UserID:             userID,
		DonorIDs:           string(donorIDsJSON),
		InitialInstruction: req.Instruction,
		Status:             model.SessionStatusActive,
		Step:               model.StepAnalyzing,
		ExpiresAt:          time.Now().Add(s.cfg.SessionTTL()),
	}
	if err := s.repo.Session.CreateSession(session); err != nil {
		return nil, fmt.Errorf("%w: failed to create session: %v", types.ErrInternal, err)
	}

	resp, err := s.runTurn(ctx, session, nil, req.Instruction)
	if err == nil {
		err = s.persistTurn(session, resp, req.Instruction)
	}
	if err != nil {
		// 首轮失败不留半成品会话
		if delErr := s.repo.Session.DeleteSession(session.ID); delErr != nil {
			log.Printf("Warning: failed to clean up session %s after failed first turn: %v", session.ID, delErr)
		}
		return nil, err
	}

	return turnResult(session, resp), nil
}

// ContinueSession 处理后续轮次
// 同一会话的并发续轮串行化；归属与状态校验失败不产生任何写入
func (s *Service) ContinueSession(ctx context.Context, orgID, userID, sessionID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message must not be empty", types.ErrBadRequest)
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOwnedSession(orgID, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, fmt.Errorf("%w: session is %s", types.ErrBadRequest, session.Status)
	}
	if time.Now().After(session.ExpiresAt) {
		// 过期但还没被清理任务标记，就地标记后拒绝
		session.Status = model.SessionStatusAbandoned
		if err := s.repo.Session.UpdateSession(session); err != nil {
			log.Printf("Warning: failed to mark expired session %s abandoned: %v", sessionID, err)
		}
		return nil, fmt.Errorf("%w: session expired", types.ErrBadRequest)
	}

	history, err := s.repo.Session.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load messages: %v", types.ErrInternal, err)
	}

	resp, err := s.runTurn(ctx, session, history, message)
	if err != nil {
		return nil, err
	}

	if err := s.persistTurn(session, resp, message); err != nil {
		return nil, err
	}

	return turnResult(session, resp), nil
}

// GetState 获取会话快照（只读，可重复调用）
func (s *Service) GetState(ctx context.Context, orgID, userID, sessionID string) (*State, error) {
	session, err := s.loadOwnedSession(orgID, userID, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.Session.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load messages: %v", types.ErrInternal, err)
	}

	return &State{Session: session, Messages: messages}, nil
}

// ListSessions 列出归属当前用户的会话
func (s *Service) ListSessions(ctx context.Context, orgID, userID string, page, size int) ([]*model.EmailSession, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return s.repo.Session.ListSessionsByOwner(orgID, userID, (page-1)*size, size)
}

// AbandonSession 主动放弃活跃会话
func (s *Service) AbandonSession(ctx context.Context, orgID, userID, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOwnedSession(orgID, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Status != model.SessionStatusActive {
		return fmt.Errorf("%w: session is %s", types.ErrBadRequest, session.Status)
	}

	session.Status = model.SessionStatusAbandoned
	if err := s.repo.Session.UpdateSession(session); err != nil {
		return fmt.Errorf("%w: failed to abandon session: %v", types.ErrInternal, err)
	}
	return nil
}

// ResumeSession 恢复尚未清除的已放弃会话，并重置过期时间
func (s *Service) ResumeSession(ctx context.Context, orgID, userID, sessionID string) (*State, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOwnedSession(orgID, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusAbandoned {
		return nil, fmt.Errorf("%w: session is %s, only abandoned sessions can be resumed", types.ErrBadRequest, session.Status)
	}

	session.Status = model.SessionStatusActive
	session.ExpiresAt = time.Now().Add(s.cfg.SessionTTL())
	if err := s.repo.Session.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("%w: failed to resume session: %v", types.ErrInternal, err)
	}

	messages, err := s.repo.Session.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load messages: %v", types.ErrInternal, err)
	}

	return &State{Session: session, Messages: messages}, nil
}

// ========== 内部辅助 ==========

// loadOwnedSession 加载并校验归属
func (s *Service) loadOwnedSession(orgID, userID, sessionID string) (*model.EmailSession, error) {
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
	return session, nil
}

// runTurn 调用编排器并对可重试的上游错误做有限重试
func (s *Service) runTurn(ctx context.Context, session *model.EmailSession, history []*model.EmailMessage, input string) (*types.AgentResponse, error) {
	var resp *types.AgentResponse
	var err error

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", types.ErrUpstreamTimeout, ctx.Err())
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
			log.Printf("Retrying completion for session %s (attempt %d/%d)", session.ID, attempt+1, s.cfg.MaxRetries+1)
		}

		resp, err = s.orchestrator.ProcessTurn(ctx, session, history, input)
		if err == nil {
			return resp, nil
		}
		if !types.Retryable(err) {
			return nil, err
		}
	}

	return nil, err
}

// persistTurn 应用编排结果并在单事务内持久化本轮消息
func (s *Service) persistTurn(session *model.EmailSession, resp *types.AgentResponse, userInput string) error {
	s.applyOutcome(session, resp)

	toolCallsJSON, err := marshalOrEmpty(resp.ToolCalls)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	toolResultsJSON, err := marshalOrEmpty(resp.ToolResults)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInternal, err)
	}

	userMsg := &model.EmailMessage{
		ID:        uuid.New().String(),
		SessionID: session.ID,
		Role:      model.RoleUser,
		Content:   userInput,
	}
	assistantMsg := &model.EmailMessage{
		ID:          uuid.New().String(),
		SessionID:   session.ID,
		Role:        model.RoleAssistant,
		Content:     resp.Content,
		ToolCalls:   toolCallsJSON,
		ToolResults: toolResultsJSON,
	}

	if err := s.repo.Session.AppendTurn(session, userMsg, assistantMsg); err != nil {
		return fmt.Errorf("%w: failed to persist turn: %v", types.ErrInternal, err)
	}

	if session.Status != model.SessionStatusActive {
		s.releaseLock(session.ID)
	}
	return nil
}

// applyOutcome 把工具结果落到会话快照并推进状态机
func (s *Service) applyOutcome(session *model.EmailSession, resp *types.AgentResponse) {
	for i, call := range resp.ToolCalls {
		if i >= len(resp.ToolResults) || !resp.ToolResults[i].OK() {
			continue
		}
		result := resp.ToolResults[i].Result

		switch call.Name {
		case tools.ToolGetDonorInfo:
			session.DonorAnalysis = result
		case tools.ToolGetOrganizationContext:
			session.OrgAnalysis = result
		case tools.ToolFinalizeInstruction:
			var final tools.FinalInstruction
			if err := json.Unmarshal([]byte(result), &final); err != nil {
				log.Printf("Warning: corrupt finalize result in session %s: %v", session.ID, err)
				continue
			}
			session.FinalInstruction = final.Instruction
		}
	}

	session.Step = resp.NextStep
	if resp.NextStep == model.StepComplete && session.FinalInstruction != "" {
		session.Status = model.SessionStatusCompleted
	}
}

// turnResult 构建单轮响应
func turnResult(session *model.EmailSession, resp *types.AgentResponse) *TurnResult {
	r := &TurnResult{
		SessionID:      session.ID,
		Status:         session.Status,
		Step:           session.Step,
		Reply:          resp.Content,
		ToolCalls:      resp.ToolCalls,
		ToolResults:    resp.ToolResults,
		ShouldContinue: resp.ShouldContinue,
	}
	if session.Status == model.SessionStatusCompleted {
		r.FinalInstruction = session.FinalInstruction
	}
	return r
}

// marshalOrEmpty 序列化为 JSON，空切片返回空串
func marshalOrEmpty(v any) (string, error) {
	switch t := v.(type) {
	case []types.ToolCall:
		if len(t) == 0 {
			return "", nil
		}
	case []types.ToolResult:
		if len(t) == 0 {
			return "", nil
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
