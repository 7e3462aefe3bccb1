// Package types 提供跨服务共享的类型与错误分类，避免服务包之间循环导入
package types

// ToolCall 模型在一轮中请求的工具调用
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON
}

// ToolResult 工具调用结果
// Result 与 Error 互斥，永远恰好一项非空；以 ToolCallID 与调用对应
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OK 结果是否成功
func (r *ToolResult) OK() bool {
	return r.Error == ""
}

// ToolContext 工具执行绑定的调用方上下文
// 除调用方身份外还带上会话快照，供定稿工具综合对话与分析结果
type ToolContext struct {
	OrganizationID string
	UserID         string
	SessionID      string

	DonorAnalysis string // 缓存的捐赠人分析（JSON）
	OrgAnalysis   string // 缓存的组织分析（JSON）
	Transcript    string // 到本轮为止的对话记录
}

// AgentResponse 编排器单轮响应
type AgentResponse struct {
	Content        string       `json:"content"`
	ToolCalls      []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults    []ToolResult `json:"tool_results,omitempty"`
	NextStep       string       `json:"next_step"`
	ShouldContinue bool         `json:"should_continue"`
}

// 审查结论
const (
	ReviewOK               = "OK"
	ReviewNeedsImprovement = "NEEDS_IMPROVEMENT"
)

// ReviewVerdict 邮件审查结论（瞬态控制信号，不持久化）
type ReviewVerdict struct {
	Result   string `json:"result"` // OK, NEEDS_IMPROVEMENT
	Feedback string `json:"feedback,omitempty"`
}

// EmailDraft 单个捐赠人的邮件草稿
type EmailDraft struct {
	DonorID string `json:"donor_id"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}
