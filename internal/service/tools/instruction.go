package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/llm"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// minInstructionLength 定稿指令的最小长度，太短说明信息不足以生成邮件
const minInstructionLength = 20

// InstructionDraft 结构化的邮件生成指令
type InstructionDraft struct {
	Instruction string   `json:"instruction"`
	Reasoning   string   `json:"reasoning"`
	Confidence  float64  `json:"confidence"`
	KeyElements []string `json:"key_elements"`
}

// Validate 校验结构化输出
func (d *InstructionDraft) Validate() error {
	if strings.TrimSpace(d.Instruction) == "" {
		return fmt.Errorf("instruction is empty")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", d.Confidence)
	}
	return nil
}

// ========== draft_instruction ==========

// DraftInstructionTool 指令起草工具
// 把用户请求与已收集的上下文转成结构化邮件生成指令
type DraftInstructionTool struct {
	cm      model.BaseChatModel
	timeout time.Duration
}

// NewDraftInstructionTool 创建指令起草工具
func NewDraftInstructionTool(cm model.BaseChatModel, timeout time.Duration) *DraftInstructionTool {
	return &DraftInstructionTool{cm: cm, timeout: timeout}
}

// Info 工具描述
func (t *DraftInstructionTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolDraftInstruction,
		Desc: "Draft a structured email-generation instruction from the user's request and the gathered donor/organization context. Call this once enough context has been collected.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"request": {
				Type:     schema.String,
				Desc:     "The user's email request, including goals and constraints gathered so far",
				Required: true,
			},
			"context": {
				Type: schema.String,
				Desc: "Relevant donor and organization context to fold into the instruction",
			},
		}),
	}, nil
}

// draftArgs 工具参数
type draftArgs struct {
	Request string `json:"request"`
	Context string `json:"context"`
}

const draftSystemPrompt = `You are an expert fundraising copywriting strategist for nonprofits.
Turn the user's request into a precise email-generation instruction.
The instruction must specify: the email's purpose, the desired tone, key points to cover, and any personalization to apply per donor.
Respond as JSON: {"instruction": string, "reasoning": string, "confidence": number between 0 and 1, "key_elements": [string]}.`

// Invoke 生成结构化指令草稿
func (t *DraftInstructionTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	var args draftArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("%w: invalid arguments: %v", types.ErrValidation, err)
	}
	if strings.TrimSpace(args.Request) == "" {
		return "", fmt.Errorf("%w: request is required", types.ErrValidation)
	}

	prompt := "Request:\n" + args.Request
	if args.Context != "" {
		prompt += "\n\nContext:\n" + args.Context
	}

	draft, err := llm.GenerateObject[InstructionDraft](ctx, t.cm, draftSystemPrompt, prompt, t.timeout)
	if err != nil {
		return "", fmt.Errorf("failed to draft instruction: %w", err)
	}

	out, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to marshal instruction draft: %w", err)
	}
	return string(out), nil
}

// ========== refine_instruction ==========

// RefineInstructionTool 指令细化工具
// 根据用户反馈修订现有指令
type RefineInstructionTool struct {
	cm      model.BaseChatModel
	timeout time.Duration
}

// NewRefineInstructionTool 创建指令细化工具
func NewRefineInstructionTool(cm model.BaseChatModel, timeout time.Duration) *RefineInstructionTool {
	return &RefineInstructionTool{cm: cm, timeout: timeout}
}

// Info 工具描述
func (t *RefineInstructionTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolRefineInstruction,
		Desc: "Revise an existing email-generation instruction based on user feedback. Keeps what the user liked, changes what they asked to change.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"instruction": {
				Type:     schema.String,
				Desc:     "The current instruction to revise",
				Required: true,
			},
			"feedback": {
				Type:     schema.String,
				Desc:     "The user's feedback on the current instruction",
				Required: true,
			},
		}),
	}, nil
}

// refineArgs 工具参数
type refineArgs struct {
	Instruction string `json:"instruction"`
	Feedback    string `json:"feedback"`
}

const refineSystemPrompt = `You are an expert fundraising copywriting strategist for nonprofits.
Revise the given email-generation instruction according to the user's feedback.
Preserve everything the feedback does not touch.
Respond as JSON: {"instruction": string, "reasoning": string, "confidence": number between 0 and 1, "key_elements": [string]}.`

// Invoke 生成修订后的指令
func (t *RefineInstructionTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	var args refineArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("%w: invalid arguments: %v", types.ErrValidation, err)
	}
	if strings.TrimSpace(args.Instruction) == "" {
		return "", fmt.Errorf("%w: instruction is required", types.ErrValidation)
	}
	if strings.TrimSpace(args.Feedback) == "" {
		return "", fmt.Errorf("%w: feedback is required", types.ErrValidation)
	}

	prompt := fmt.Sprintf("Current instruction:\n%s\n\nFeedback:\n%s", args.Instruction, args.Feedback)

	draft, err := llm.GenerateObject[InstructionDraft](ctx, t.cm, refineSystemPrompt, prompt, t.timeout)
	if err != nil {
		return "", fmt.Errorf("failed to refine instruction: %w", err)
	}

	out, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refined instruction: %w", err)
	}
	return string(out), nil
}

// ========== finalize_instruction ==========

// FinalInstruction 定稿指令
type FinalInstruction struct {
	Instruction string   `json:"instruction"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
	KeyElements []string `json:"key_elements,omitempty"`
	Finalized   bool     `json:"finalized"`
}

// FinalizeInstructionTool 指令定稿工具
// 把确认过的指令、对话记录与缓存的捐赠人/组织分析综合成完整的最终指令
type FinalizeInstructionTool struct {
	cm      model.BaseChatModel
	timeout time.Duration
}

// NewFinalizeInstructionTool 创建指令定稿工具
func NewFinalizeInstructionTool(cm model.BaseChatModel, timeout time.Duration) *FinalizeInstructionTool {
	return &FinalizeInstructionTool{cm: cm, timeout: timeout}
}

// Info 工具描述
func (t *FinalizeInstructionTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolFinalizeInstruction,
		Desc: "Lock in the email-generation instruction once the user has confirmed it. After this the session moves to email generation.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"instruction": {
				Type:     schema.String,
				Desc:     "The confirmed instruction to finalize",
				Required: true,
			},
		}),
	}, nil
}

// finalizeArgs 工具参数
type finalizeArgs struct {
	Instruction string `json:"instruction"`
}

const finalizeSystemPrompt = `You are an expert fundraising copywriting strategist for nonprofits.
Synthesize the confirmed instruction, the conversation and the donor/organization analysis into one comprehensive, self-contained email-generation instruction.
The final instruction must specify: the email's purpose, the desired tone, every key point the conversation settled on, and the personalization to apply per donor.
Respond as JSON: {"instruction": string, "reasoning": string, "confidence": number between 0 and 1, "key_elements": [string]}.`

// Invoke 校验确认的指令，综合会话上下文后定稿
func (t *FinalizeInstructionTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	var args finalizeArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("%w: invalid arguments: %v", types.ErrValidation, err)
	}

	instruction := strings.TrimSpace(args.Instruction)
	if len(instruction) < minInstructionLength {
		return "", fmt.Errorf("%w: instruction too short to generate emails from", types.ErrValidation)
	}

	prompt := "Confirmed instruction:\n" + instruction
	if tctx != nil {
		if tctx.Transcript != "" {
			prompt += "\n\nConversation:\n" + tctx.Transcript
		}
		if tctx.DonorAnalysis != "" {
			prompt += "\n\nDonor analysis:\n" + tctx.DonorAnalysis
		}
		if tctx.OrgAnalysis != "" {
			prompt += "\n\nOrganization analysis:\n" + tctx.OrgAnalysis
		}
	}

	draft, err := llm.GenerateObject[InstructionDraft](ctx, t.cm, finalizeSystemPrompt, prompt, t.timeout)
	if err != nil {
		return "", fmt.Errorf("failed to finalize instruction: %w", err)
	}

	out, err := json.Marshal(FinalInstruction{
		Instruction: draft.Instruction,
		Reasoning:   draft.Reasoning,
		Confidence:  draft.Confidence,
		KeyElements: draft.KeyElements,
		Finalized:   true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal final instruction: %w", err)
	}
	return string(out), nil
}
