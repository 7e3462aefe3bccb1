package llm

import (
	"encoding/json"
	"testing"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		// 修复结果必须能反序列化出这些键值
		want map[string]interface{}
	}{
		{
			name:  "already valid",
			input: `{"a":1}`,
			want:  map[string]interface{}{"a": float64(1)},
		},
		{
			name:  "leading and trailing whitespace",
			input: "  {\"a\":\"b\"}\n",
			want:  map[string]interface{}{"a": "b"},
		},
		{
			name:  "surrounded by prose",
			input: `Here is the result: {"subject":"Hello"} hope it helps`,
			want:  map[string]interface{}{"subject": "Hello"},
		},
		{
			name:  "code fence",
			input: "```json\n{\"a\": true}\n```",
			want:  map[string]interface{}{"a": true},
		},
		{
			name:  "missing closing brace",
			input: `{"a": "b"`,
			want:  map[string]interface{}{"a": "b"},
		},
		{
			name:  "single quotes repaired",
			input: `{'a': 'b'}`,
			want:  map[string]interface{}{"a": "b"},
		},
		{
			name:  "trailing comma repaired",
			input: `{"a": 1,}`,
			want:  map[string]interface{}{"a": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairJSON(tt.input)

			var parsed map[string]interface{}
			if err := json.Unmarshal([]byte(got), &parsed); err != nil {
				t.Fatalf("RepairJSON(%q) = %q, not valid JSON: %v", tt.input, got, err)
			}
			for k, v := range tt.want {
				if parsed[k] != v {
					t.Errorf("parsed[%q] = %v, want %v", k, parsed[k], v)
				}
			}
		})
	}
}

func TestRepairJSONUnrepairable(t *testing.T) {
	// 修复失败时返回处理后的输入而不是 panic
	got := RepairJSON("")
	if got != "" {
		t.Errorf("RepairJSON(\"\") = %q, want empty passthrough", got)
	}
}
