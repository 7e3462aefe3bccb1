package agent

import (
	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/service/tools"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// NextStep 根据当前阶段与本轮工具调用推导下一阶段
// 规则按优先级排列，工具信号优先于阶段推进；不做关键词推断
func NextStep(current string, calls []types.ToolCall) string {
	switch {
	case hasCall(calls, tools.ToolFinalizeInstruction):
		return model.StepComplete
	case hasCall(calls, tools.ToolDraftInstruction), hasCall(calls, tools.ToolRefineInstruction):
		return model.StepRefining
	case hasCall(calls, tools.ToolGetDonorInfo), hasCall(calls, tools.ToolGetOrganizationContext),
		current == model.StepAnalyzing:
		// analyzing 在没有更高优先级工具信号前不自行离开
		return model.StepAnalyzing
	}

	// 没有工具信号时按固定顺序推进一步
	switch current {
	case model.StepQuestioning:
		return model.StepRefining
	case model.StepRefining:
		return model.StepRefining
	case model.StepComplete:
		return model.StepComplete
	default:
		return model.StepQuestioning
	}
}

// hasCall 判断本轮是否调用了指定工具
func hasCall(calls []types.ToolCall, name string) bool {
	for _, c := range calls {
		if c.Name == name {
			return true
		}
	}
	return false
}
