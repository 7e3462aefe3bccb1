package model

import "time"

// Organization 公益组织
type Organization struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Name              string    `gorm:"size:255;not null" json:"name"`
	Mission           string    `gorm:"type:text" json:"mission"`
	WritingGuidelines string    `gorm:"type:text" json:"writing_guidelines"`
	Tone              string    `gorm:"size:100" json:"tone"`
	Topics            string    `gorm:"type:text" json:"topics"` // JSON 数组
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MemoryNote 组织记忆条目（沉淀的沟通偏好与事实）
type MemoryNote struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID string    `gorm:"index;size:36;not null" json:"organization_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Organization) TableName() string {
	return "organizations"
}

func (MemoryNote) TableName() string {
	return "memory_notes"
}
