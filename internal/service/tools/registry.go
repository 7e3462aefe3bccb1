// Package tools 提供邮件编排使用的封闭工具集
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// 工具名称，注册表只接受这组名称
const (
	ToolGetDonorInfo           = "get_donor_info"
	ToolGetOrganizationContext = "get_organization_context"
	ToolDraftInstruction       = "draft_instruction"
	ToolRefineInstruction      = "refine_instruction"
	ToolFinalizeInstruction    = "finalize_instruction"
)

// Tool 可被编排器调用的工具
// Info 提供给模型的工具描述；Invoke 在调用方上下文内执行
type Tool interface {
	Info(ctx context.Context) (*schema.ToolInfo, error)
	Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error)
}

// Registry 工具注册表
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string // 保持注册顺序，Describe 输出稳定
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register 注册工具，名称重复时覆盖
func (r *Registry) Register(name string, tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get 按名称查找工具
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Describe 输出全部工具描述，顺序与注册顺序一致
func (r *Registry) Describe(ctx context.Context) ([]*schema.ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe tool %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute 执行单个工具调用
// 未知工具名和工具执行失败都封装进结果，不向上抛错
func (r *Registry) Execute(ctx context.Context, call types.ToolCall, tctx *types.ToolContext) types.ToolResult {
	tool, ok := r.Get(call.Name)
	if !ok {
		return types.ToolResult{
			ToolCallID: call.ID,
			Error:      fmt.Sprintf("unknown tool: %s", call.Name),
		}
	}

	result, err := tool.Invoke(ctx, call.Arguments, tctx)
	if err != nil {
		return types.ToolResult{
			ToolCallID: call.ID,
			Error:      err.Error(),
		}
	}
	return types.ToolResult{
		ToolCallID: call.ID,
		Result:     result,
	}
}

// ExecuteMany 并发执行一轮内的全部工具调用
// 结果切片与调用切片一一对应；单个失败不影响其余调用
func (r *Registry) ExecuteMany(ctx context.Context, calls []types.ToolCall, tctx *types.ToolContext) []types.ToolResult {
	results := make([]types.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call types.ToolCall) {
			defer wg.Done()
			results[i] = r.Execute(ctx, call, tctx)
		}(i, call)
	}
	wg.Wait()

	return results
}
