package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/donor-ai/internal/service"
	"github.com/ashwinyue/donor-ai/internal/service/session"
)

// SessionHandler 邮件会话处理器
type SessionHandler struct {
	svc *service.Services
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(svc *service.Services) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// StartSession 创建会话并处理首轮
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req session.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Session.StartSession(c.Request.Context(), getOrgID(c), getUserID(c), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, result)
}

// continueRequest 续轮请求
type continueRequest struct {
	Message string `json:"message" binding:"required"`
}

// ContinueSession 处理后续轮次
func (h *SessionHandler) ContinueSession(c *gin.Context) {
	var req continueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.svc.Session.ContinueSession(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"), req.Message)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, result)
}

// GetSession 获取会话快照
func (h *SessionHandler) GetSession(c *gin.Context) {
	state, err := h.svc.Session.GetState(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, state)
}

// ListSessions 列出会话
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, size := getPagination(c)

	sessions, err := h.svc.Session.ListSessions(c.Request.Context(), getOrgID(c), getUserID(c), page, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, sessions)
}

// AbandonSession 放弃会话
func (h *SessionHandler) AbandonSession(c *gin.Context) {
	if err := h.svc.Session.AbandonSession(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"abandoned": true})
}

// ResumeSession 恢复已放弃的会话
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	state, err := h.svc.Session.ResumeSession(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, state)
}

// GenerateEmails 按定稿指令生成邮件
func (h *SessionHandler) GenerateEmails(c *gin.Context) {
	emails, err := h.svc.Email.GenerateForSession(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, emails)
}

// ListEmails 列出会话生成的邮件
func (h *SessionHandler) ListEmails(c *gin.Context) {
	emails, err := h.svc.Email.ListBySession(c.Request.Context(), getOrgID(c), getUserID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, emails)
}
