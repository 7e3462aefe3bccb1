package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// structuredMaxAttempts 结构化输出解析失败时的最大尝试次数
// schema 违例按可重试的上游错误处理，而不是直接失败
const structuredMaxAttempts = 3

// defaultTimeout 调用方未配置时的补全超时兜底
const defaultTimeout = 60 * time.Second

// Validatable 可自校验的结构化输出
type Validatable interface {
	Validate() error
}

// GenerateObject 调用补全能力生成符合 schema 的结构化对象
// 输出先经过 JSON 修复再反序列化；反序列化或校验失败会带着错误说明重试。
// 每次调用都带超时，timeout <= 0 时取兜底值
func GenerateObject[T any](ctx context.Context, cm model.BaseChatModel, system, prompt string, timeout time.Duration) (*T, error) {
	if cm == nil {
		return nil, fmt.Errorf("%w: chat model not configured", types.ErrUpstream)
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(system + "\n\nRespond with a single JSON object only. No prose, no code fences."),
		schema.UserMessage(prompt),
	}

	var lastErr error
	for attempt := 1; attempt <= structuredMaxAttempts; attempt++ {
		resp, err := cm.Generate(ctx, messages)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %v", types.ErrUpstreamTimeout, err)
			}
			return nil, fmt.Errorf("%w: %v", types.ErrUpstream, err)
		}

		out, err := decode[T](resp.Content)
		if err == nil {
			return out, nil
		}
		lastErr = err

		// 把失败原因反馈给模型后重试
		messages = append(messages,
			schema.AssistantMessage(resp.Content, nil),
			schema.UserMessage(fmt.Sprintf("Your previous response was not valid: %v. Respond again with a single valid JSON object matching the requested fields.", err)),
		)
	}

	return nil, fmt.Errorf("%w: structured output invalid after %d attempts: %v",
		types.ErrUpstream, structuredMaxAttempts, lastErr)
}

// decode 修复、反序列化并校验结构化输出
func decode[T any](content string) (*T, error) {
	repaired := RepairJSON(content)

	var out T
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrValidation, err)
	}

	if v, ok := any(&out).(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrValidation, err)
		}
	}

	return &out, nil
}
