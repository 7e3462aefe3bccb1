package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeChatModel 按脚本回放响应的 ChatModel，供测试替代真实补全能力
type FakeChatModel struct {
	mu sync.Mutex

	// Responses 预置响应，按调用顺序消费
	Responses []*schema.Message
	// Err 非 nil 时每次调用都返回该错误
	Err error

	// Calls 记录每次 Generate 收到的消息序列
	Calls [][]*schema.Message
	// BoundTools 记录最近一次 WithTools 绑定的工具
	BoundTools []*schema.ToolInfo
}

// Generate 返回下一条预置响应
func (m *FakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, input)

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, fmt.Errorf("no scripted response left (call %d)", len(m.Calls))
	}

	resp := m.Responses[0]
	m.Responses = m.Responses[1:]
	return resp, nil
}

// Stream 把下一条预置响应包装为流
func (m *FakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{resp}), nil
}

// WithTools 记录绑定的工具并返回自身
func (m *FakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BoundTools = tools
	return m, nil
}

// CallCount 返回 Generate 的调用次数
func (m *FakeChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// AssistantText 构造纯文本助手消息
func AssistantText(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

// AssistantToolCall 构造带单个工具调用的助手消息
func AssistantToolCall(id, name, arguments string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{
		{
			ID:   id,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      name,
				Arguments: arguments,
			},
		},
	})
}
