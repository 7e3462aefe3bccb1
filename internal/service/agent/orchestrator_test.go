package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/model"
	"github.com/ashwinyue/donor-ai/internal/service/tools"
	"github.com/ashwinyue/donor-ai/internal/service/types"
	"github.com/ashwinyue/donor-ai/internal/testutil"
)

// staticPrompter 固定系统提示词
type staticPrompter struct{}

func (staticPrompter) SystemPrompt(ctx context.Context, orgID string) (string, error) {
	return "You help craft email instructions.", nil
}

// staticTool 返回固定结果并记录收到的工具上下文
type staticTool struct {
	name   string
	result string
	err    error
	gotCtx *types.ToolContext
}

func (t *staticTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{
		Name:        t.name,
		Desc:        "static",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}, nil
}

func (t *staticTool) Invoke(ctx context.Context, arguments string, tctx *types.ToolContext) (string, error) {
	t.gotCtx = tctx
	return t.result, t.err
}

func orchestratorWith(cm *testutil.FakeChatModel, toolList ...*staticTool) *Orchestrator {
	registry := tools.NewRegistry()
	for _, tool := range toolList {
		registry.Register(tool.name, tool)
	}
	return NewOrchestrator(cm, registry, staticPrompter{}, 5*time.Second)
}

func testSession() *model.EmailSession {
	return &model.EmailSession{
		ID:             "s1",
		OrganizationID: "org-1",
		UserID:         "u1",
		DonorIDs:       `["d1"]`,
		Status:         model.SessionStatusActive,
		Step:           model.StepAnalyzing,
	}
}

func TestProcessTurnTextOnly(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{testutil.AssistantText("What occasion is this email for?")},
	}
	o := orchestratorWith(cm)

	resp, err := o.ProcessTurn(context.Background(), testSession(), nil, "Write something nice")
	if err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}

	if resp.Content != "What occasion is this email for?" {
		t.Errorf("Content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 0 || len(resp.ToolResults) != 0 {
		t.Errorf("unexpected tool activity: %+v", resp)
	}
	// analyzing 没有工具信号时不自行离开
	if resp.NextStep != model.StepAnalyzing {
		t.Errorf("NextStep = %q, want analyzing", resp.NextStep)
	}
	if !resp.ShouldContinue {
		t.Error("ShouldContinue = false, want true")
	}
}

func TestProcessTurnExecutesToolsAndFollowsUp(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{
			testutil.AssistantToolCall("c1", tools.ToolGetDonorInfo, `{"donor_ids":["d1"]}`),
			testutil.AssistantText("I pulled up the donor's history."),
		},
	}
	o := orchestratorWith(cm, &staticTool{name: tools.ToolGetDonorInfo, result: `[{"donor":{"id":"d1"}}]`})

	resp, err := o.ProcessTurn(context.Background(), testSession(), nil, "Use their history")
	if err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != tools.ToolGetDonorInfo {
		t.Fatalf("ToolCalls = %+v", resp.ToolCalls)
	}
	if len(resp.ToolResults) != 1 || !resp.ToolResults[0].OK() {
		t.Fatalf("ToolResults = %+v", resp.ToolResults)
	}
	if resp.ToolResults[0].ToolCallID != "c1" {
		t.Errorf("ToolCallID = %q, want c1", resp.ToolResults[0].ToolCallID)
	}
	if resp.Content != "I pulled up the donor's history." {
		t.Errorf("Content = %q, want follow-up text", resp.Content)
	}
	if resp.NextStep != model.StepAnalyzing {
		t.Errorf("NextStep = %q, want analyzing", resp.NextStep)
	}
	if cm.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2 (tool turn + follow-up)", cm.CallCount())
	}
}

func TestProcessTurnToolFailureDoesNotAbort(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{
			testutil.AssistantToolCall("c1", tools.ToolGetDonorInfo, `{}`),
			testutil.AssistantText("I could not load that donor."),
		},
	}
	o := orchestratorWith(cm, &staticTool{name: tools.ToolGetDonorInfo, err: errors.New("donor not found")})

	resp, err := o.ProcessTurn(context.Background(), testSession(), nil, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}
	if resp.ToolResults[0].OK() {
		t.Error("tool result should carry the error")
	}
	if resp.ToolResults[0].Error != "donor not found" {
		t.Errorf("Error = %q", resp.ToolResults[0].Error)
	}
}

func TestProcessTurnToolContextCarriesSessionSnapshot(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{
			testutil.AssistantToolCall("c1", tools.ToolFinalizeInstruction, `{"instruction":"Write warm thank-you emails mentioning the last gift."}`),
			testutil.AssistantText("Done."),
		},
	}
	tool := &staticTool{name: tools.ToolFinalizeInstruction, result: `{"instruction":"x","finalized":true}`}
	o := orchestratorWith(cm, tool)

	session := testSession()
	session.DonorAnalysis = `[{"donor":{"id":"d1"}}]`
	session.OrgAnalysis = `{"mission":"end hunger"}`
	history := []*model.EmailMessage{
		{Role: model.RoleUser, Content: "thank recent donors"},
		{Role: model.RoleAssistant, Content: "Should I mention the expansion?"},
	}

	if _, err := o.ProcessTurn(context.Background(), session, history, "yes, go ahead"); err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}

	if tool.gotCtx == nil {
		t.Fatal("tool did not receive a context")
	}
	if tool.gotCtx.DonorAnalysis != session.DonorAnalysis {
		t.Errorf("DonorAnalysis = %q", tool.gotCtx.DonorAnalysis)
	}
	if tool.gotCtx.OrgAnalysis != session.OrgAnalysis {
		t.Errorf("OrgAnalysis = %q", tool.gotCtx.OrgAnalysis)
	}
	for _, want := range []string{"thank recent donors", "Should I mention the expansion?", "yes, go ahead"} {
		if !strings.Contains(tool.gotCtx.Transcript, want) {
			t.Errorf("Transcript missing %q:\n%s", want, tool.gotCtx.Transcript)
		}
	}
}

func TestTranscript(t *testing.T) {
	history := []*model.EmailMessage{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleAssistant, Content: "hi there"},
	}

	got := transcript(history, "one more thing")
	want := "user: hello\nassistant: hi there\nuser: one more thing\n"
	if got != want {
		t.Errorf("transcript() = %q, want %q", got, want)
	}

	if transcript(nil, "") != "" {
		t.Error("transcript(nil, \"\") should be empty")
	}
}

func TestProcessTurnFinalizeCompletes(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{
			testutil.AssistantToolCall("c1", tools.ToolFinalizeInstruction, `{"instruction":"Write warm thank-you emails mentioning the last gift."}`),
			testutil.AssistantText("All set, generating emails next."),
		},
	}
	o := orchestratorWith(cm, &staticTool{
		name:   tools.ToolFinalizeInstruction,
		result: `{"instruction":"Write warm thank-you emails mentioning the last gift.","finalized":true}`,
	})

	session := testSession()
	session.Step = model.StepRefining

	resp, err := o.ProcessTurn(context.Background(), session, nil, "looks good, go ahead")
	if err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}
	if resp.NextStep != model.StepComplete {
		t.Errorf("NextStep = %q, want complete", resp.NextStep)
	}
	if resp.ShouldContinue {
		t.Error("ShouldContinue = true, want false after finalize")
	}
}

func TestProcessTurnEmptyResponseRetriesOnce(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{
			testutil.AssistantText(""),
			testutil.AssistantText("Here is a short reply."),
		},
	}
	o := orchestratorWith(cm)

	resp, err := o.ProcessTurn(context.Background(), testSession(), nil, "hi")
	if err != nil {
		t.Fatalf("ProcessTurn() error: %v", err)
	}
	if resp.Content != "Here is a short reply." {
		t.Errorf("Content = %q", resp.Content)
	}
	if cm.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2", cm.CallCount())
	}
}

func TestProcessTurnUpstreamError(t *testing.T) {
	cm := &testutil.FakeChatModel{Err: errors.New("rate limited")}
	o := orchestratorWith(cm)

	_, err := o.ProcessTurn(context.Background(), testSession(), nil, "hi")
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("ProcessTurn() error = %v, want ErrUpstream", err)
	}
}

func TestProcessTurnNilModel(t *testing.T) {
	o := NewOrchestrator(nil, tools.NewRegistry(), staticPrompter{}, time.Second)
	_, err := o.ProcessTurn(context.Background(), testSession(), nil, "hi")
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("ProcessTurn(nil model) error = %v, want ErrUpstream", err)
	}
}
