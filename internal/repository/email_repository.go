package repository

import (
	"github.com/ashwinyue/donor-ai/internal/model"
	"gorm.io/gorm"
)

// EmailRepository 生成邮件数据访问
type EmailRepository struct {
	db *gorm.DB
}

// NewEmailRepository 创建生成邮件仓库
func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create 保存生成的邮件
func (r *EmailRepository) Create(email *model.GeneratedEmail) error {
	return r.db.Create(email).Error
}

// ListBySessionID 列出会话生成的全部邮件
func (r *EmailRepository) ListBySessionID(sessionID string) ([]*model.GeneratedEmail, error) {
	var emails []*model.GeneratedEmail
	err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&emails).Error
	return emails, err
}

// GetByID 获取单封邮件
func (r *EmailRepository) GetByID(id string) (*model.GeneratedEmail, error) {
	var email model.GeneratedEmail
	err := r.db.Where("id = ?", id).First(&email).Error
	if err != nil {
		return nil, err
	}
	return &email, nil
}
