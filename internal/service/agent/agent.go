// Package agent 实现邮件指令编排器
// 单轮流程：绑定工具补全 -> 并发执行工具 -> 二次补全生成回复 -> 推导阶段
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	appmodel "github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/service/tools"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// SystemPrompter 提供会话系统提示词
type SystemPrompter interface {
	SystemPrompt(ctx context.Context, orgID string) (string, error)
}

// Orchestrator 邮件指令编排器
type Orchestrator struct {
	cm       model.ToolCallingChatModel
	registry *tools.Registry
	prompts  SystemPrompter
	timeout  time.Duration
}

// NewOrchestrator 创建编排器
func NewOrchestrator(cm model.ToolCallingChatModel, registry *tools.Registry, prompts SystemPrompter, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		cm:       cm,
		registry: registry,
		prompts:  prompts,
		timeout:  timeout,
	}
}

// ProcessTurn 处理会话的一轮用户输入
// history 为已持久化的消息（按 idx 升序），userInput 为本轮输入
func (o *Orchestrator) ProcessTurn(ctx context.Context, session *appmodel.EmailSession, history []*appmodel.EmailMessage, userInput string) (*types.AgentResponse, error) {
	if o.cm == nil {
		return nil, fmt.Errorf("%w: chat model not configured", types.ErrUpstream)
	}

	systemPrompt, err := o.prompts.SystemPrompt(ctx, session.OrganizationID)
	if err != nil {
		return nil, err
	}

	messages, err := buildMessages(systemPrompt, session, history, userInput)
	if err != nil {
		return nil, err
	}

	infos, err := o.registry.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInternal, err)
	}
	tcm, err := o.cm.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to bind tools: %v", types.ErrUpstream, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := tcm.Generate(genCtx, messages)
	if err != nil {
		return nil, classifyGenerateError(err)
	}

	calls := extractToolCalls(resp)

	// 空响应（无内容也无工具调用）重试一次，要求模型给出文字回复
	if resp.Content == "" && len(calls) == 0 {
		log.Printf("Warning: empty completion for session %s, retrying once", session.ID)
		retryMsgs := append(messages, schema.UserMessage("Please respond with a short message for the user."))
		resp, err = tcm.Generate(genCtx, retryMsgs)
		if err != nil {
			return nil, classifyGenerateError(err)
		}
		calls = extractToolCalls(resp)
	}

	out := &types.AgentResponse{
		Content:   resp.Content,
		ToolCalls: calls,
	}

	if len(calls) > 0 {
		tctx := &types.ToolContext{
			OrganizationID: session.OrganizationID,
			UserID:         session.UserID,
			SessionID:      session.ID,
			DonorAnalysis:  session.DonorAnalysis,
			OrgAnalysis:    session.OrgAnalysis,
			Transcript:     transcript(history, userInput),
		}
		out.ToolResults = o.registry.ExecuteMany(ctx, calls, tctx)

		// 带着工具结果做二次补全，得到面向用户的回复
		followUp := append(messages, resp)
		for i, r := range out.ToolResults {
			content := r.Result
			if !r.OK() {
				content = "Error: " + r.Error
			}
			followUp = append(followUp, schema.ToolMessage(content, calls[i].ID))
		}

		final, err := tcm.Generate(genCtx, followUp)
		if err != nil {
			return nil, classifyGenerateError(err)
		}
		if final.Content != "" {
			out.Content = final.Content
		}
	}

	out.NextStep = NextStep(session.Step, calls)
	out.ShouldContinue = out.NextStep != appmodel.StepComplete

	return out, nil
}

// buildMessages 组装补全消息序列：系统提示词 + 会话前言 + 历史回放 + 本轮输入
func buildMessages(systemPrompt string, session *appmodel.EmailSession, history []*appmodel.EmailMessage, userInput string) ([]*schema.Message, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt + "\n\n" + sessionPreamble(session)),
	}

	for _, msg := range history {
		switch msg.Role {
		case appmodel.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case appmodel.RoleAssistant:
			toolCalls, err := replayToolCalls(msg.ToolCalls)
			if err != nil {
				return nil, fmt.Errorf("%w: corrupt tool calls in message %s: %v", types.ErrInternal, msg.ID, err)
			}
			messages = append(messages, schema.AssistantMessage(msg.Content, toolCalls))
			toolMsgs, err := replayToolResults(msg.ToolResults)
			if err != nil {
				return nil, fmt.Errorf("%w: corrupt tool results in message %s: %v", types.ErrInternal, msg.ID, err)
			}
			messages = append(messages, toolMsgs...)
		}
	}

	if userInput != "" {
		messages = append(messages, schema.UserMessage(userInput))
	}

	return messages, nil
}

// transcript 把历史消息与本轮输入拍平为文字记录，供定稿工具综合对话内容
func transcript(history []*appmodel.EmailMessage, userInput string) string {
	var b strings.Builder
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	if userInput != "" {
		b.WriteString(appmodel.RoleUser)
		b.WriteString(": ")
		b.WriteString(userInput)
		b.WriteString("\n")
	}
	return b.String()
}

// sessionPreamble 会话级上下文，告诉模型本次服务的捐赠人
func sessionPreamble(session *appmodel.EmailSession) string {
	preamble := "Selected donor IDs for this session: " + session.DonorIDs
	if session.FinalInstruction != "" {
		preamble += "\nThe instruction has been finalized: " + session.FinalInstruction
	}
	return preamble
}

// replayToolCalls 把持久化的工具调用还原为补全消息格式
func replayToolCalls(raw string) ([]schema.ToolCall, error) {
	if raw == "" {
		return nil, nil
	}
	var calls []types.ToolCall
	if err := json.Unmarshal([]byte(raw), &calls); err != nil {
		return nil, err
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, schema.ToolCall{
			ID:   c.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}
	return out, nil
}

// replayToolResults 把持久化的工具结果还原为工具消息
func replayToolResults(raw string) ([]*schema.Message, error) {
	if raw == "" {
		return nil, nil
	}
	var results []types.ToolResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		return nil, err
	}
	out := make([]*schema.Message, 0, len(results))
	for _, r := range results {
		content := r.Result
		if !r.OK() {
			content = "Error: " + r.Error
		}
		out = append(out, schema.ToolMessage(content, r.ToolCallID))
	}
	return out, nil
}

// extractToolCalls 从补全消息中提取工具调用
func extractToolCalls(msg *schema.Message) []types.ToolCall {
	if len(msg.ToolCalls) == 0 {
		return nil
	}
	calls := make([]types.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		calls = append(calls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls
}

// classifyGenerateError 把补全错误归类为可重试的上游错误
func classifyGenerateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", types.ErrUpstream, err)
}
