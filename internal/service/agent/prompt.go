package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/donor-ai/internal/service/organization"
)

// promptCacheTTL 系统提示词缓存时长，组织资料变更时主动失效
const promptCacheTTL = 1 * time.Hour

// PromptCache 系统提示词的 Redis 缓存
type PromptCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewPromptCache 创建提示词缓存
func NewPromptCache(client *redis.Client) *PromptCache {
	return &PromptCache{
		client: client,
		prefix: "donor-ai:prompt:",
		ttl:    promptCacheTTL,
	}
}

func (c *PromptCache) key(orgID string) string {
	return c.prefix + orgID
}

// Get 读取缓存的提示词
func (c *PromptCache) Get(ctx context.Context, orgID string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}
	val, err := c.client.Get(ctx, c.key(orgID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: prompt cache get failed for org %s: %v", orgID, err)
		}
		return "", false
	}
	return val, true
}

// Set 写入提示词缓存
func (c *PromptCache) Set(ctx context.Context, orgID, prompt string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Set(ctx, c.key(orgID), prompt, c.ttl).Err(); err != nil {
		log.Printf("Warning: prompt cache set failed for org %s: %v", orgID, err)
	}
}

// Invalidate 失效提示词缓存，组织资料或记忆条目变更时调用
func (c *PromptCache) Invalidate(ctx context.Context, orgID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.key(orgID)).Err()
}

// ========== 提示词构建 ==========

// PromptBuilder 按组织上下文构建编排器系统提示词
type PromptBuilder struct {
	orgService *organization.Service
	cache      *PromptCache
}

// NewPromptBuilder 创建提示词构建器
func NewPromptBuilder(orgService *organization.Service, cache *PromptCache) *PromptBuilder {
	return &PromptBuilder{orgService: orgService, cache: cache}
}

// SystemPrompt 构建（或取缓存）组织的系统提示词
func (b *PromptBuilder) SystemPrompt(ctx context.Context, orgID string) (string, error) {
	if cached, ok := b.cache.Get(ctx, orgID); ok {
		return cached, nil
	}

	orgCtx, err := b.orgService.BuildContext(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to build organization context: %w", err)
	}

	prompt := renderSystemPrompt(orgCtx)
	b.cache.Set(ctx, orgID, prompt)
	return prompt, nil
}

// renderSystemPrompt 渲染系统提示词
func renderSystemPrompt(orgCtx *organization.Context) string {
	var sb strings.Builder

	sb.WriteString("You are an email strategy assistant for the nonprofit \"")
	sb.WriteString(orgCtx.Name)
	sb.WriteString("\". You help staff craft a precise instruction for generating personalized donor emails.\n\n")

	if orgCtx.Mission != "" {
		sb.WriteString("Mission: ")
		sb.WriteString(orgCtx.Mission)
		sb.WriteString("\n")
	}
	sb.WriteString("Tone: ")
	sb.WriteString(orgCtx.Tone)
	sb.WriteString("\n")
	if orgCtx.WritingGuidelines != "" {
		sb.WriteString("Writing guidelines: ")
		sb.WriteString(orgCtx.WritingGuidelines)
		sb.WriteString("\n")
	}
	if len(orgCtx.Topics) > 0 {
		sb.WriteString("Preferred topics: ")
		sb.WriteString(strings.Join(orgCtx.Topics, ", "))
		sb.WriteString("\n")
	}
	if len(orgCtx.MemoryNotes) > 0 {
		sb.WriteString("\nThings to remember about this organization:\n")
		for _, note := range orgCtx.MemoryNotes {
			sb.WriteString("- ")
			sb.WriteString(note)
			sb.WriteString("\n")
		}
	}

	sb.WriteString(`
Workflow:
1. Use get_donor_info and get_organization_context to gather context about the selected donors and the organization.
2. Ask the user short clarifying questions when their goal is ambiguous.
3. Use draft_instruction to propose an email-generation instruction, and refine_instruction to revise it from feedback.
4. When the user confirms the instruction, call finalize_instruction.

Keep replies short and concrete. Never write the actual email yourself; your output is the instruction.`)

	return sb.String()
}
