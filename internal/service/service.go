package service

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/donor-ai/internal/config"
	"github.com/ashwinyue/donor-ai/internal/repository"
	"github.com/ashwinyue/donor-ai/internal/service/agent"
	"github.com/ashwinyue/donor-ai/internal/service/auth"
	"github.com/ashwinyue/donor-ai/internal/service/donor"
	"github.com/ashwinyue/donor-ai/internal/service/email"
	"github.com/ashwinyue/donor-ai/internal/service/organization"
	"github.com/ashwinyue/donor-ai/internal/service/review"
	"github.com/ashwinyue/donor-ai/internal/service/session"
	"github.com/ashwinyue/donor-ai/internal/service/tools"
)

// Services 服务集合
type Services struct {
	// 业务服务
	Auth         *auth.Service
	Donor        *donor.Service
	Organization *organization.Service
	Session      *session.Service
	Email        *email.Service

	// 配置
	Config *config.Config

	// 编排组件
	Registry     *tools.Registry
	Orchestrator *agent.Orchestrator
	ChatModel    model.ToolCallingChatModel
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	// 创建 ChatModel
	chatModel, err := newToolCallingChatModel(ctx, cfg)
	if err != nil {
		// 无模型时数据管理接口仍可用，编排调用会报上游错误
		log.Printf("Warning: failed to create chat model: %v", err)
	}

	// 数据服务
	donorService := donor.NewService(repo)
	orgService := organization.NewService(repo)

	completionTimeout := cfg.AI.CompletionTimeout()

	// 工具注册表（封闭集合，注册顺序即 Describe 顺序）
	registry := tools.NewRegistry()
	registry.Register(tools.ToolGetDonorInfo, tools.NewDonorInfoTool(donorService))
	registry.Register(tools.ToolGetOrganizationContext, tools.NewOrgContextTool(orgService))
	registry.Register(tools.ToolDraftInstruction, tools.NewDraftInstructionTool(chatModel, completionTimeout))
	registry.Register(tools.ToolRefineInstruction, tools.NewRefineInstructionTool(chatModel, completionTimeout))
	registry.Register(tools.ToolFinalizeInstruction, tools.NewFinalizeInstructionTool(chatModel, completionTimeout))

	// 提示词缓存与编排器
	promptCache := agent.NewPromptCache(redisClient)
	orgService.SetPromptInvalidator(promptCache)
	prompts := agent.NewPromptBuilder(orgService, promptCache)
	orchestrator := agent.NewOrchestrator(chatModel, registry, prompts, completionTimeout)

	// 会话与邮件生成
	sessionService := session.NewService(repo, orchestrator, donorService, &cfg.Session)
	reviewer := review.NewReviewer(chatModel, completionTimeout)
	emailService := email.NewService(repo, donorService, orgService, reviewer, chatModel, cfg.Review.MaxAttempts, completionTimeout)

	return &Services{
		Auth:         auth.NewService(repo),
		Donor:        donorService,
		Organization: orgService,
		Session:      sessionService,
		Email:        emailService,

		Config: cfg,

		Registry:     registry,
		Orchestrator: orchestrator,
		ChatModel:    chatModel,
	}, nil
}

// newToolCallingChatModel 创建支持工具调用的 ChatModel
func newToolCallingChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0.7)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}
