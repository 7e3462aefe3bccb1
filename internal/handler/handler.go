package handler

import (
	"github.com/ashwinyue/donor-ai/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Donor        *DonorHandler
	Organization *OrganizationHandler
	Session      *SessionHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc),
		Donor:        NewDonorHandler(svc),
		Organization: NewOrganizationHandler(svc),
		Session:      NewSessionHandler(svc),
	}
}
