package ai

import "github.com/flanksource/brandify/errs"

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Tools      []tool        `json:"tools"`
	ToolChoice toolChoice    `json:"tool_choice"`
}

type chatMessage struct {
	Role string `json:"role"`
	// Content is a string or a list of contentPart.
	Content any `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type tool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type toolName struct {
	Name string `json:"name"`
}

type toolChoice struct {
	Type     string   `json:"type"`
	Function toolName `json:"function"`
}

func processImageTool() tool {
	return tool{
		Type: "function",
		Function: toolFunction{
			Name:        ToolName,
			Description: "Process and convert an image to match company branding",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"style_name": map[string]any{
						"type":        "string",
						"description": "The name of the style template to apply",
					},
					"color_adjustments": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"primary_color":   map[string]any{"type": "string"},
							"secondary_color": map[string]any{"type": "string"},
						},
					},
					"add_logo": map[string]any{
						"type":        "boolean",
						"description": "Whether to add the company logo",
					},
					"logo_position": map[string]any{
						"type": "string",
						"enum": []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"},
					},
				},
				"required": []string{"style_name"},
			},
		},
	}
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Type     string `json:"type"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (r *chatResponse) toolArguments() (string, error) {
	if len(r.Choices) == 0 {
		return "", errs.New(errs.UpstreamServiceError, "model response has no choices")
	}
	for _, call := range r.Choices[0].Message.ToolCalls {
		if call.Function.Name == ToolName || call.Function.Name == "" {
			return call.Function.Arguments, nil
		}
	}
	return "", errs.New(errs.UpstreamServiceError, "model response has no %s tool call", ToolName)
}
