package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/donor-ai/internal/service"
	"github.com/ashwinyue/donor-ai/internal/service/donor"
)

// DonorHandler 捐赠人处理器
type DonorHandler struct {
	svc *service.Services
}

// NewDonorHandler 创建捐赠人处理器
func NewDonorHandler(svc *service.Services) *DonorHandler {
	return &DonorHandler{svc: svc}
}

// CreateDonor 创建捐赠人
func (h *DonorHandler) CreateDonor(c *gin.Context) {
	var req donor.CreateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.svc.Donor.CreateDonor(c.Request.Context(), getOrgID(c), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, d)
}

// GetDonor 获取捐赠人
func (h *DonorHandler) GetDonor(c *gin.Context) {
	d, err := h.svc.Donor.GetDonor(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, d)
}

// GetDonorBrief 获取捐赠人画像
func (h *DonorHandler) GetDonorBrief(c *gin.Context) {
	brief, err := h.svc.Donor.BuildBrief(c.Request.Context(), getOrgID(c), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, brief)
}

// ListDonors 列出捐赠人
func (h *DonorHandler) ListDonors(c *gin.Context) {
	page, size := getPagination(c)

	donors, err := h.svc.Donor.ListDonors(c.Request.Context(), getOrgID(c), page, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, donors)
}

// UpdateDonor 更新捐赠人
func (h *DonorHandler) UpdateDonor(c *gin.Context) {
	var req donor.CreateDonorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	d, err := h.svc.Donor.UpdateDonor(c.Request.Context(), getOrgID(c), c.Param("id"), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, d)
}

// DeleteDonor 删除捐赠人
func (h *DonorHandler) DeleteDonor(c *gin.Context) {
	if err := h.svc.Donor.DeleteDonor(c.Request.Context(), getOrgID(c), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{"deleted": true})
}
