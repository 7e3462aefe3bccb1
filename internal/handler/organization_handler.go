package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/donor-ai/internal/service"
	"github.com/ashwinyue/donor-ai/internal/service/organization"
)

// OrganizationHandler 组织处理器
type OrganizationHandler struct {
	svc *service.Services
}

// NewOrganizationHandler 创建组织处理器
func NewOrganizationHandler(svc *service.Services) *OrganizationHandler {
	return &OrganizationHandler{svc: svc}
}

// GetOrganization 获取当前组织
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, err := h.svc.Organization.GetOrganization(c.Request.Context(), getOrgID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, org)
}

// UpdateOrganization 更新组织资料
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	var req organization.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	org, err := h.svc.Organization.UpdateOrganization(c.Request.Context(), getOrgID(c), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, org)
}

// GetContext 获取组织上下文汇总
func (h *OrganizationHandler) GetContext(c *gin.Context) {
	orgCtx, err := h.svc.Organization.BuildContext(c.Request.Context(), getOrgID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, orgCtx)
}

// AddMemoryNote 追加记忆条目
func (h *OrganizationHandler) AddMemoryNote(c *gin.Context) {
	var req organization.AddMemoryNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	note, err := h.svc.Organization.AddMemoryNote(c.Request.Context(), getOrgID(c), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, note)
}

// ListMemoryNotes 列出记忆条目
func (h *OrganizationHandler) ListMemoryNotes(c *gin.Context) {
	notes, err := h.svc.Organization.ListMemoryNotes(c.Request.Context(), getOrgID(c))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, notes)
}
