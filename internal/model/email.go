package model

import "time"

// 生成邮件状态
const (
	EmailStatusReviewed   = "reviewed"
	EmailStatusUnverified = "unverified"
)

// GeneratedEmail 按捐赠人生成的邮件草稿
// 审查通过为 reviewed；重试耗尽仍未通过则标记 unverified 而不是失败
type GeneratedEmail struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID      string    `gorm:"index;size:36;not null" json:"session_id"`
	DonorID        string    `gorm:"index;size:36;not null" json:"donor_id"`
	Subject        string    `gorm:"size:500" json:"subject"`
	Content        string    `gorm:"type:text" json:"content"`
	Status         string    `gorm:"size:20" json:"status"` // reviewed, unverified
	ReviewFeedback string    `gorm:"type:text" json:"review_feedback,omitempty"`
	Attempts       int       `gorm:"default:0" json:"attempts"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (GeneratedEmail) TableName() string {
	return "generated_emails"
}
