package email

import (
	"testing"
	"time"

	"github.com/ashwinyue/donor-ai/internal/model"
)

func TestEmailOutputValidate(t *testing.T) {
	tests := []struct {
		name    string
		output  emailOutput
		wantErr bool
	}{
		{
			name:   "valid",
			output: emailOutput{Subject: "Thank you", Content: "Dear donor..."},
		},
		{
			name:    "empty subject",
			output:  emailOutput{Content: "body"},
			wantErr: true,
		},
		{
			name:    "whitespace subject",
			output:  emailOutput{Subject: "  ", Content: "body"},
			wantErr: true,
		},
		{
			name:    "empty content",
			output:  emailOutput{Subject: "hi"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.output.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewServiceDefaultsAttempts(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, 0, time.Minute)
	if svc.maxAttempts != 3 {
		t.Errorf("maxAttempts = %d, want default 3", svc.maxAttempts)
	}

	svc = NewService(nil, nil, nil, nil, nil, 5, time.Minute)
	if svc.maxAttempts != 5 {
		t.Errorf("maxAttempts = %d, want 5", svc.maxAttempts)
	}
}

func TestConversationLog(t *testing.T) {
	messages := []*model.EmailMessage{
		{Role: model.RoleUser, Content: "thank recent donors"},
		{Role: model.RoleAssistant, Content: ""},
		{Role: model.RoleAssistant, Content: "Should I mention the gala?"},
		{Role: model.RoleUser, Content: "no, skip the gala"},
	}

	got := conversationLog(messages)
	want := "user: thank recent donors\nassistant: Should I mention the gala?\nuser: no, skip the gala\n"
	if got != want {
		t.Errorf("conversationLog() = %q, want %q", got, want)
	}

	if conversationLog(nil) != "" {
		t.Error("conversationLog(nil) should be empty")
	}
}
