package model

import "time"

// 会话状态
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"
)

// 会话步骤（状态机，与 status 相互独立）
const (
	StepAnalyzing   = "analyzing"
	StepQuestioning = "questioning"
	StepRefining    = "refining"
	StepComplete    = "complete"
)

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// EmailSession 智能邮件生成会话
// donor_ids 创建后不可变；donor_analysis/org_analysis 为跨轮次缓存的分析快照
type EmailSession struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID     string         `gorm:"index;size:36;not null" json:"organization_id"`
	UserID             string         `gorm:"index;size:36;not null" json:"user_id"`
	DonorIDs           string         `gorm:"type:text;not null" json:"-"` // JSON 数组
	InitialInstruction string         `gorm:"type:text" json:"initial_instruction"`
	FinalInstruction   string         `gorm:"type:text" json:"final_instruction,omitempty"`
	DonorAnalysis      string         `gorm:"type:text" json:"-"`
	OrgAnalysis        string         `gorm:"type:text" json:"-"`
	Status             string         `gorm:"index;size:20;default:active" json:"status"`
	Step               string         `gorm:"size:20;default:analyzing" json:"step"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	ExpiresAt          time.Time      `gorm:"index" json:"expires_at"`
	Messages           []EmailMessage `gorm:"foreignKey:SessionID" json:"-"`
}

// EmailMessage 会话消息（写入后不可变，仅随会话级联删除）
// Idx 在会话内从 0 起严格递增且无空洞
type EmailMessage struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID   string    `gorm:"uniqueIndex:uniq_session_idx;size:36;not null" json:"session_id"`
	Idx         int       `gorm:"uniqueIndex:uniq_session_idx;not null" json:"idx"`
	Role        string    `gorm:"size:20;not null" json:"role"` // user, assistant, system
	Content     string    `gorm:"type:text" json:"content"`
	ToolCalls   string    `gorm:"type:text" json:"-"` // JSON，附着于产生它们的 assistant 消息
	ToolResults string    `gorm:"type:text" json:"-"` // JSON，按 tool_call_id 与调用对应
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (EmailSession) TableName() string {
	return "email_sessions"
}

func (EmailMessage) TableName() string {
	return "email_messages"
}
