package review

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/donor-ai/internal/service/types"
	"github.com/ashwinyue/donor-ai/internal/testutil"
)

func TestVerdictOutputValidate(t *testing.T) {
	tests := []struct {
		name    string
		verdict verdictOutput
		wantErr bool
	}{
		{
			name:    "ok without feedback",
			verdict: verdictOutput{Result: types.ReviewOK},
		},
		{
			name:    "ok with feedback",
			verdict: verdictOutput{Result: types.ReviewOK, Feedback: "well done"},
		},
		{
			name:    "needs improvement with feedback",
			verdict: verdictOutput{Result: types.ReviewNeedsImprovement, Feedback: "tone is off"},
		},
		{
			name:    "needs improvement without feedback",
			verdict: verdictOutput{Result: types.ReviewNeedsImprovement},
			wantErr: true,
		},
		{
			name:    "unknown result",
			verdict: verdictOutput{Result: "MAYBE"},
			wantErr: true,
		},
		{
			name:    "empty result",
			verdict: verdictOutput{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.verdict.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReviewerAccepts(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{testutil.AssistantText(`{"result":"OK","feedback":""}`)},
	}

	r := NewReviewer(cm, time.Second)
	verdict, err := r.Review(context.Background(), "thank the donor", "user: thank recent donors\n", "be warm", &types.EmailDraft{
		DonorID: "d1",
		Subject: "Thank you",
		Content: "Dear friend, thank you for your gift.",
	})
	if err != nil {
		t.Fatalf("Review() error: %v", err)
	}
	if verdict.Result != types.ReviewOK {
		t.Errorf("Result = %q, want OK", verdict.Result)
	}
}

func TestReviewerSeesConversation(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{testutil.AssistantText(`{"result":"OK","feedback":""}`)},
	}

	history := "user: thank recent donors\nassistant: Should I mention the gala?\nuser: no, never mention the gala\n"
	r := NewReviewer(cm, time.Second)
	_, err := r.Review(context.Background(), "thank the donor", history, "be warm", &types.EmailDraft{
		DonorID: "d1",
		Subject: "Thank you",
		Content: "Dear friend, thank you.",
	})
	if err != nil {
		t.Fatalf("Review() error: %v", err)
	}

	if cm.CallCount() != 1 {
		t.Fatalf("CallCount = %d, want 1", cm.CallCount())
	}
	sent := cm.Calls[0]
	prompt := sent[len(sent)-1].Content
	if !strings.Contains(prompt, "never mention the gala") {
		t.Errorf("conversation missing from review prompt:\n%s", prompt)
	}
}

func TestReviewerRejectsWithFeedback(t *testing.T) {
	cm := &testutil.FakeChatModel{
		Responses: []*schema.Message{testutil.AssistantText(`{"result":"NEEDS_IMPROVEMENT","feedback":"mention the last gift"}`)},
	}

	r := NewReviewer(cm, time.Second)
	verdict, err := r.Review(context.Background(), "thank the donor", "", "", &types.EmailDraft{DonorID: "d1"})
	if err != nil {
		t.Fatalf("Review() error: %v", err)
	}
	if verdict.Result != types.ReviewNeedsImprovement {
		t.Errorf("Result = %q, want NEEDS_IMPROVEMENT", verdict.Result)
	}
	if verdict.Feedback != "mention the last gift" {
		t.Errorf("Feedback = %q", verdict.Feedback)
	}
}

func TestReviewerUpstreamFailure(t *testing.T) {
	cm := &testutil.FakeChatModel{Err: errors.New("boom")}

	r := NewReviewer(cm, time.Second)
	_, err := r.Review(context.Background(), "instr", "", "", &types.EmailDraft{DonorID: "d1"})
	if !errors.Is(err, types.ErrUpstream) {
		t.Errorf("Review() error = %v, want ErrUpstream", err)
	}
}
