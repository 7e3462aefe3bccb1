package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB           *gorm.DB // 直接访问数据库
	Session      *SessionRepository
	Donor        *DonorRepository
	Organization *OrganizationRepository
	Email        *EmailRepository
	Auth         *AuthRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:           db,
		Session:      NewSessionRepository(db),
		Donor:        NewDonorRepository(db),
		Organization: NewOrganizationRepository(db),
		Email:        NewEmailRepository(db),
		Auth:         NewAuthRepository(db),
	}
}
