package api

import (
	"errors"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestValidateRequest_Valid(t *testing.T) {
	req := &ChatRequest{
		Model: "Vikhrmodels/QVikhr-3-4B-Instruction",
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "You are helpful."},
			{Role: RoleUser, Content: "What is the capital of France?"},
		},
	}
	if err := ValidateRequest(req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateRequest_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		req       *ChatRequest
		wantParam string
	}{
		{
			name:      "nil request",
			req:       nil,
			wantParam: "",
		},
		{
			name:      "empty model",
			req:       &ChatRequest{Messages: []ChatMessage{{Role: RoleUser, Content: "hi"}}},
			wantParam: "model",
		},
		{
			name:      "no messages",
			req:       &ChatRequest{Model: "m"},
			wantParam: "messages",
		},
		{
			name: "unknown role",
			req: &ChatRequest{Model: "m", Messages: []ChatMessage{
				{Role: "oracle", Content: "hi"},
			}},
			wantParam: "messages[0].role",
		},
		{
			name: "empty role",
			req: &ChatRequest{Model: "m", Messages: []ChatMessage{
				{Content: "hi"},
			}},
			wantParam: "messages[0].role",
		},
		{
			name: "empty content",
			req: &ChatRequest{Model: "m", Messages: []ChatMessage{
				{Role: RoleUser},
			}},
			wantParam: "messages[0].content",
		},
		{
			name: "tool message without call id",
			req: &ChatRequest{Model: "m", Messages: []ChatMessage{
				{Role: RoleTool, Content: "42"},
			}},
			wantParam: "messages[0].tool_call_id",
		},
		{
			name: "temperature out of range",
			req: &ChatRequest{Model: "m", Temperature: floatPtr(3.5), Messages: []ChatMessage{
				{Role: RoleUser, Content: "hi"},
			}},
			wantParam: "temperature",
		},
		{
			name: "non-positive max_tokens",
			req: &ChatRequest{Model: "m", MaxTokens: intPtr(0), Messages: []ChatMessage{
				{Role: RoleUser, Content: "hi"},
			}},
			wantParam: "max_tokens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Type != ErrorTypeInvalidRequest {
				t.Errorf("expected type %q, got %q", ErrorTypeInvalidRequest, apiErr.Type)
			}
			if apiErr.Param != tt.wantParam {
				t.Errorf("expected param %q, got %q", tt.wantParam, apiErr.Param)
			}
		})
	}
}

func TestValidateRequest_AssistantToolCallContent(t *testing.T) {
	// An assistant message with tool calls and no content is valid.
	req := &ChatRequest{
		Model: "m",
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "weather?"},
			{Role: RoleAssistant, ToolCalls: []ChatToolCall{
				{ID: "call_1", Type: "function", Function: ChatFunctionCall{
					Name: "get_weather", Arguments: `{"location":"Paris"}`,
				}},
			}},
			{Role: RoleTool, ToolCallID: "call_1", Content: `{"temp":"21C"}`},
		},
	}
	if err := ValidateRequest(req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
