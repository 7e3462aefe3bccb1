package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/service/types"
)

func TestBuildMessagesReplaysHistory(t *testing.T) {
	session := &model.EmailSession{
		ID:       "s1",
		DonorIDs: `["d1"]`,
		Step:     model.StepQuestioning,
	}
	history := []*model.EmailMessage{
		{ID: "m0", Role: model.RoleUser, Content: "Write a thank-you email", Idx: 0},
		{
			ID:          "m1",
			Role:        model.RoleAssistant,
			Content:     "Looking at the donor now.",
			Idx:         1,
			ToolCalls:   `[{"id":"c1","name":"get_donor_info","arguments":"{\"donor_ids\":[\"d1\"]}"}]`,
			ToolResults: `[{"tool_call_id":"c1","result":"{}"}]`,
		},
	}

	messages, err := buildMessages("system prompt", session, history, "make it shorter")
	if err != nil {
		t.Fatalf("buildMessages() error: %v", err)
	}

	// system + user + assistant + tool + new user
	if len(messages) != 5 {
		t.Fatalf("got %d messages, want 5", len(messages))
	}
	if messages[0].Role != schema.System {
		t.Errorf("messages[0].Role = %v, want system", messages[0].Role)
	}
	if messages[1].Role != schema.User || messages[1].Content != "Write a thank-you email" {
		t.Errorf("messages[1] = %+v", messages[1])
	}
	if messages[2].Role != schema.Assistant || len(messages[2].ToolCalls) != 1 {
		t.Errorf("messages[2] should be the assistant turn with one tool call, got %+v", messages[2])
	}
	if messages[2].ToolCalls[0].Function.Name != "get_donor_info" {
		t.Errorf("replayed tool call name = %q", messages[2].ToolCalls[0].Function.Name)
	}
	if messages[3].Role != schema.Tool || messages[3].ToolCallID != "c1" {
		t.Errorf("messages[3] should be the tool result, got %+v", messages[3])
	}
	if messages[4].Role != schema.User || messages[4].Content != "make it shorter" {
		t.Errorf("messages[4] = %+v", messages[4])
	}
}

func TestBuildMessagesCorruptHistory(t *testing.T) {
	session := &model.EmailSession{ID: "s1", DonorIDs: `["d1"]`}
	history := []*model.EmailMessage{
		{ID: "m1", Role: model.RoleAssistant, ToolCalls: `{broken`},
	}

	_, err := buildMessages("sys", session, history, "hi")
	if !errors.Is(err, types.ErrInternal) {
		t.Errorf("buildMessages() error = %v, want ErrInternal", err)
	}
}

func TestBuildMessagesFailedToolResultReplay(t *testing.T) {
	session := &model.EmailSession{ID: "s1", DonorIDs: `["d1"]`}
	history := []*model.EmailMessage{
		{
			ID:          "m1",
			Role:        model.RoleAssistant,
			ToolCalls:   `[{"id":"c1","name":"get_donor_info","arguments":"{}"}]`,
			ToolResults: `[{"tool_call_id":"c1","error":"donor not found"}]`,
		},
	}

	messages, err := buildMessages("sys", session, history, "")
	if err != nil {
		t.Fatalf("buildMessages() error: %v", err)
	}

	last := messages[len(messages)-1]
	if last.Role != schema.Tool {
		t.Fatalf("last message role = %v, want tool", last.Role)
	}
	if last.Content != "Error: donor not found" {
		t.Errorf("tool message content = %q", last.Content)
	}
}

func TestSessionPreambleIncludesFinalInstruction(t *testing.T) {
	session := &model.EmailSession{DonorIDs: `["d1","d2"]`}
	preamble := sessionPreamble(session)
	if preamble != `Selected donor IDs for this session: ["d1","d2"]` {
		t.Errorf("preamble = %q", preamble)
	}

	session.FinalInstruction = "Send thanks."
	preamble = sessionPreamble(session)
	if !strings.Contains(preamble, "Send thanks.") {
		t.Errorf("preamble missing final instruction: %q", preamble)
	}
}

func TestExtractToolCalls(t *testing.T) {
	msg := schema.AssistantMessage("", []schema.ToolCall{
		{ID: "c1", Function: schema.FunctionCall{Name: "draft_instruction", Arguments: `{"request":"x"}`}},
		{ID: "c2", Function: schema.FunctionCall{Name: "get_donor_info", Arguments: `{}`}},
	})

	calls := extractToolCalls(msg)
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].ID != "c1" || calls[0].Name != "draft_instruction" {
		t.Errorf("calls[0] = %+v", calls[0])
	}
	if calls[1].Arguments != `{}` {
		t.Errorf("calls[1].Arguments = %q", calls[1].Arguments)
	}

	if got := extractToolCalls(schema.AssistantMessage("plain text", nil)); got != nil {
		t.Errorf("extractToolCalls(no calls) = %v, want nil", got)
	}
}

func TestClassifyGenerateError(t *testing.T) {
	if err := classifyGenerateError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)); !errors.Is(err, types.ErrUpstreamTimeout) {
		t.Errorf("deadline error classified as %v", err)
	}
	if err := classifyGenerateError(errors.New("connection reset")); !errors.Is(err, types.ErrUpstream) {
		t.Errorf("generic error classified as %v", err)
	}
}
