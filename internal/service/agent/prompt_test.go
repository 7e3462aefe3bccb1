package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/ashwinyue/donor-ai/internal/service/organization"
)

func TestRenderSystemPrompt(t *testing.T) {
	orgCtx := &organization.Context{
		Name:              "Hope Foundation",
		Mission:           "Clean water for every village",
		WritingGuidelines: "Short paragraphs, no jargon",
		Tone:              "warm and personal",
		Topics:            []string{"water", "health"},
		MemoryNotes:       []string{"Major donors prefer impact numbers"},
	}

	prompt := renderSystemPrompt(orgCtx)

	for _, want := range []string{
		"Hope Foundation",
		"Clean water for every village",
		"Short paragraphs, no jargon",
		"warm and personal",
		"water, health",
		"Major donors prefer impact numbers",
		"get_donor_info",
		"finalize_instruction",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRenderSystemPromptMinimal(t *testing.T) {
	prompt := renderSystemPrompt(&organization.Context{Name: "Tiny Org", Tone: "warm and personal"})

	if !strings.Contains(prompt, "Tiny Org") {
		t.Error("prompt missing organization name")
	}
	if strings.Contains(prompt, "Things to remember") {
		t.Error("prompt should omit memory section when there are no notes")
	}
	if strings.Contains(prompt, "Preferred topics") {
		t.Error("prompt should omit topics section when there are no topics")
	}
}

func TestPromptCacheNilSafe(t *testing.T) {
	var cache *PromptCache

	if _, ok := cache.Get(context.Background(), "org-1"); ok {
		t.Error("nil cache Get should miss")
	}
	cache.Set(context.Background(), "org-1", "prompt")
	if err := cache.Invalidate(context.Background(), "org-1"); err != nil {
		t.Errorf("nil cache Invalidate error: %v", err)
	}

	// 未配置 redis 客户端时同样安全
	empty := &PromptCache{}
	if _, ok := empty.Get(context.Background(), "org-1"); ok {
		t.Error("cache without client should miss")
	}
}
