package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/organization"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// OrgContextTool 组织上下文工具
// 汇总组织使命、写作规范、语气话题与记忆条目
type OrgContextTool struct {
	orgService *organization.Service
}

// NewOrgContextTool 创建组织上下文工具
func NewOrgContextTool(orgService *organization.Service) *OrgContextTool {
	return &OrgContextTool{orgService: orgService}
}

// Info 工具描述
func (t *OrgContextTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolGetOrganizationContext,
		Desc: "Get the organization's mission, writing guidelines, tone, topics and memory notes. Use this to keep the email consistent with the organization's voice.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

// Invoke 执行查询，结果为组织上下文的 JSON
// 组织 ID 来自调用方上下文，参数被忽略
func (t *OrgContextTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	orgCtx, err := t.orgService.BuildContext(ctx, tctx.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("failed to build organization context: %w", err)
	}

	out, err := json.Marshal(orgCtx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal organization context: %w", err)
	}
	return string(out), nil
}
