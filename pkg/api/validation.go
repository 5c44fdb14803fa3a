package api

import "fmt"

// ValidateRequest checks a ChatRequest against the wire contract before it
// is sent: a non-empty model, a non-empty ordered message list, and a valid
// role on every message. Tool result messages must reference the tool call
// they answer.
func ValidateRequest(req *ChatRequest) error {
	if req == nil {
		return NewInvalidRequestError("", "request must not be nil")
	}

	if req.Model == "" {
		return NewInvalidRequestError("model", "model must not be empty")
	}

	if len(req.Messages) == 0 {
		return NewInvalidRequestError("messages", "messages must not be empty")
	}

	for i, msg := range req.Messages {
		if err := validateMessage(i, msg); err != nil {
			return err
		}
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > 2) {
		return NewInvalidRequestError("temperature", "temperature must be between 0 and 2")
	}

	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	return nil
}

func validateMessage(index int, msg ChatMessage) error {
	param := fmt.Sprintf("messages[%d]", index)

	switch msg.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		// valid
	case "":
		return NewInvalidRequestError(param+".role", "role must not be empty")
	default:
		return NewInvalidRequestError(param+".role",
			fmt.Sprintf("role must be one of system, user, assistant, tool; got %q", msg.Role))
	}

	if msg.Role == RoleTool && msg.ToolCallID == "" {
		return NewInvalidRequestError(param+".tool_call_id",
			"tool messages must reference a tool_call_id")
	}

	// Assistant messages may legitimately have empty content when they carry
	// tool calls; every other role needs content.
	if msg.Content == "" && !(msg.Role == RoleAssistant && len(msg.ToolCalls) > 0) {
		return NewInvalidRequestError(param+".content", "content must not be empty")
	}

	return nil
}
