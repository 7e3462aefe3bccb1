package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/types"
	"github.com/ashwinyue/donor-ai/internal/testutil"
)

type greeting struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (g *greeting) Validate() error {
	if g.Subject == "" {
		return fmt.Errorf("subject is empty")
	}
	return nil
}

func fakeModel(responses ...*schema.Message) *testutil.FakeChatModel {
	return &testutil.FakeChatModel{Responses: responses}
}

func TestGenerateObjectSuccess(t *testing.T) {
	cm := fakeModel(testutil.AssistantText(`{"subject":"Hi","body":"Thanks"}`))

	out, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if err != nil {
		t.Fatalf("GenerateObject() error: %v", err)
	}
	if out.Subject != "Hi" || out.Body != "Thanks" {
		t.Errorf("GenerateObject() = %+v", out)
	}
	if cm.CallCount() != 1 {
		t.Errorf("CallCount = %d, want 1", cm.CallCount())
	}
}

func TestGenerateObjectRepairsArtifacts(t *testing.T) {
	cm := fakeModel(testutil.AssistantText("```json\n{\"subject\":\"Hi\",\"body\":\"x\"}\n```"))

	out, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if err != nil {
		t.Fatalf("GenerateObject() error: %v", err)
	}
	if out.Subject != "Hi" {
		t.Errorf("Subject = %q, want Hi", out.Subject)
	}
}

func TestGenerateObjectRetriesOnInvalidOutput(t *testing.T) {
	cm := fakeModel(
		testutil.AssistantText("I cannot answer that"),
		testutil.AssistantText(`{"subject":"","body":"fails validation"}`),
		testutil.AssistantText(`{"subject":"Recovered","body":"ok"}`),
	)

	out, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if err != nil {
		t.Fatalf("GenerateObject() error: %v", err)
	}
	if out.Subject != "Recovered" {
		t.Errorf("Subject = %q, want Recovered", out.Subject)
	}
	if cm.CallCount() != 3 {
		t.Errorf("CallCount = %d, want 3", cm.CallCount())
	}
}

func TestGenerateObjectExhaustsAttempts(t *testing.T) {
	cm := fakeModel(
		testutil.AssistantText("nope"),
		testutil.AssistantText("still nope"),
		testutil.AssistantText("never"),
	)

	_, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("GenerateObject() error = %v, want ErrUpstream", err)
	}
	if cm.CallCount() != structuredMaxAttempts {
		t.Errorf("CallCount = %d, want %d", cm.CallCount(), structuredMaxAttempts)
	}
}

func TestGenerateObjectUpstreamError(t *testing.T) {
	cm := &testutil.FakeChatModel{Err: errors.New("connection refused")}

	_, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("GenerateObject() error = %v, want ErrUpstream", err)
	}
}

func TestGenerateObjectTimeout(t *testing.T) {
	cm := &testutil.FakeChatModel{Err: fmt.Errorf("call failed: %w", context.DeadlineExceeded)}

	_, err := GenerateObject[greeting](context.Background(), cm, "system", "prompt", time.Second)
	if !errors.Is(err, types.ErrUpstreamTimeout) {
		t.Errorf("GenerateObject() error = %v, want ErrUpstreamTimeout", err)
	}
}

// stalledModel 阻塞到 ctx 结束，用于验证超时确实生效
type stalledModel struct{}

func (stalledModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerateObjectAppliesDeadline(t *testing.T) {
	start := time.Now()
	_, err := GenerateObject[greeting](context.Background(), stalledModel{}, "system", "prompt", 20*time.Millisecond)
	if !errors.Is(err, types.ErrUpstreamTimeout) {
		t.Errorf("GenerateObject() error = %v, want ErrUpstreamTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call took %v, deadline was not applied", elapsed)
	}
}

func TestGenerateObjectNilModel(t *testing.T) {
	_, err := GenerateObject[greeting](context.Background(), nil, "system", "prompt", time.Second)
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("GenerateObject(nil) error = %v, want ErrUpstream", err)
	}
}
