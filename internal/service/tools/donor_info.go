package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/donor"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

// DonorInfoTool 捐赠人信息工具
// 按捐赠人 ID 汇总捐赠历史、沟通历史、调研洞察与统计
type DonorInfoTool struct {
	donorService *donor.Service
}

// NewDonorInfoTool 创建捐赠人信息工具
func NewDonorInfoTool(donorService *donor.Service) *DonorInfoTool {
	return &DonorInfoTool{donorService: donorService}
}

// Info 工具描述
func (t *DonorInfoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name: ToolGetDonorInfo,
		Desc: "Get detailed information about donors: giving history, communication history, research insights and giving statistics. Use this before drafting to personalize the email.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"donor_ids": {
				Type:     schema.Array,
				Desc:     "IDs of the donors to look up",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Required: true,
			},
		}),
	}, nil
}

// donorInfoArgs 工具参数
type donorInfoArgs struct {
	DonorIDs []string `json:"donor_ids"`
}

// Invoke 执行查询，结果为捐赠人画像列表的 JSON
func (t *DonorInfoTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	var args donorInfoArgs
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("%w: invalid arguments: %v", types.ErrValidation, err)
	}
	if len(args.DonorIDs) == 0 {
		return "", fmt.Errorf("%w: donor_ids is required", types.ErrValidation)
	}

	briefs := make([]*donor.Brief, 0, len(args.DonorIDs))
	for _, id := range args.DonorIDs {
		brief, err := t.donorService.BuildBrief(ctx, tctx.OrganizationID, id)
		if err != nil {
			return "", fmt.Errorf("failed to build donor brief for %s: %w", id, err)
		}
		briefs = append(briefs, brief)
	}

	out, err := json.Marshal(briefs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal donor briefs: %w", err)
	}
	return string(out), nil
}
