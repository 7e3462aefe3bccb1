// Package review 实现生成邮件的质量审查
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/ashwinyue/donor-ai/internal/service/llm"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

const reviewSystemPrompt = `You are a strict quality reviewer for nonprofit fundraising emails.
Check the email against the generation instruction, the conversation that produced it and the organization's writing guidelines:
- Does it fulfill the instruction's purpose and cover its key points?
- Does it honor everything the user settled on in the conversation?
- Does it match the required tone and guidelines?
- Is the personalization accurate and respectful?
- Is it free of placeholders, factual gaps and formatting artifacts?
Respond as JSON: {"result": "OK" or "NEEDS_IMPROVEMENT", "feedback": string}.
Feedback is required when the result is NEEDS_IMPROVEMENT and must be concrete enough to act on.`

// verdictOutput 审查的结构化输出
type verdictOutput struct {
	Result   string `json:"result"`
	Feedback string `json:"feedback"`
}

// Validate 校验审查结论
func (v *verdictOutput) Validate() error {
	switch v.Result {
	case types.ReviewOK:
		return nil
	case types.ReviewNeedsImprovement:
		if v.Feedback == "" {
			return fmt.Errorf("feedback is required when result is %s", types.ReviewNeedsImprovement)
		}
		return nil
	default:
		return fmt.Errorf("result must be %s or %s, got %q", types.ReviewOK, types.ReviewNeedsImprovement, v.Result)
	}
}

// Reviewer 邮件审查器
type Reviewer struct {
	cm      model.BaseChatModel
	timeout time.Duration
}

// NewReviewer 创建审查器
func NewReviewer(cm model.BaseChatModel, timeout time.Duration) *Reviewer {
	return &Reviewer{cm: cm, timeout: timeout}
}

// Review 审查单封邮件草稿，对话记录与写作指南一起作为合规依据
// 结论是瞬态控制信号，由调用方决定重新生成还是放行
func (r *Reviewer) Review(ctx context.Context, instruction, chatHistory, guidelines string, draft *types.EmailDraft) (*types.ReviewVerdict, error) {
	prompt := fmt.Sprintf(
		"Generation instruction:\n%s\n\nConversation:\n%s\n\nWriting guidelines:\n%s\n\nEmail subject:\n%s\n\nEmail body:\n%s",
		instruction, chatHistory, guidelines, draft.Subject, draft.Content,
	)

	out, err := llm.GenerateObject[verdictOutput](ctx, r.cm, reviewSystemPrompt, prompt, r.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to review email for donor %s: %w", draft.DonorID, err)
	}

	return &types.ReviewVerdict{
		Result:   out.Result,
		Feedback: out.Feedback,
	}, nil
}
