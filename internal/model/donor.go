package model

import "time"

// Donor 捐赠人
type Donor struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string    `gorm:"index;size:36;not null" json:"organization_id"`
	FirstName      string    `gorm:"size:100" json:"first_name"`
	LastName       string    `gorm:"size:100" json:"last_name"`
	Email          string    `gorm:"index;size:255" json:"email"`
	Phone          string    `gorm:"size:50" json:"phone"`
	Notes          string    `gorm:"type:text" json:"notes"`
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Donation 捐赠记录（金额以分为单位）
type Donation struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	DonorID    string    `gorm:"index;size:36;not null" json:"donor_id"`
	ProjectID  string    `gorm:"index;size:36" json:"project_id"`
	AmountCent int64     `gorm:"not null" json:"amount_cent"`
	Currency   string    `gorm:"size:3;default:USD" json:"currency"`
	DonatedAt  time.Time `gorm:"index" json:"donated_at"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Communication 沟通记录
type Communication struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	DonorID   string    `gorm:"index;size:36;not null" json:"donor_id"`
	Channel   string    `gorm:"size:20" json:"channel"` // email, phone, meeting
	Direction string    `gorm:"size:10" json:"direction"` // inbound, outbound
	Subject   string    `gorm:"size:255" json:"subject"`
	Summary   string    `gorm:"type:text" json:"summary"`
	SentAt    time.Time `gorm:"index" json:"sent_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ResearchInsight 捐赠人调研洞察
type ResearchInsight struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	DonorID   string    `gorm:"index;size:36;not null" json:"donor_id"`
	Topic     string    `gorm:"size:255" json:"topic"`
	Insight   string    `gorm:"type:text" json:"insight"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Donor) TableName() string {
	return "donors"
}

func (Donation) TableName() string {
	return "donations"
}

func (Communication) TableName() string {
	return "communications"
}

func (ResearchInsight) TableName() string {
	return "research_insights"
}
