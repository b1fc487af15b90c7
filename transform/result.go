package transform

// Metadata describes how an artifact was produced.
type Metadata struct {
	ProcessMethod   string         `json:"processMethod" pretty:"label=Method"`
	TemplateApplied string         `json:"templateApplied,omitempty" pretty:"label=Template"`
	Message         string         `json:"message,omitempty" pretty:"label=Message"`
	Model           string         `json:"model,omitempty" pretty:"label=Model"`
	StyleParams     map[string]any `json:"styleParams,omitempty" pretty:"label=Style"`
	Error           string         `json:"error,omitempty" pretty:"label=Error"`
	// Fallback marks a passthrough copy that carries no branding.
	Fallback bool           `json:"fallback,omitempty" pretty:"label=Fallback"`
	Extra    map[string]any `json:"extra,omitempty" pretty:"hide"`
}

// Result is returned by every strategy and tier.
type Result struct {
	Success bool `json:"success" pretty:"hide"`
	// Output is the file actually written, which may differ from the
	// requested path.
	Output   string   `json:"outputFile" pretty:"label=Output"`
	Metadata Metadata `json:"metadata"`
}

func success(output, method, templateID string) *Result {
	return &Result{
		Success: true,
		Output:  output,
		Metadata: Metadata{
			ProcessMethod:   method,
			TemplateApplied: templateID,
		},
	}
}
