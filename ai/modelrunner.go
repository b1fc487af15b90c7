// Package ai asks a local model runner for a style decision. The runner
// exposes an OpenAI compatible chat completions API; the request forces a
// process_image tool call whose arguments describe how to brand the input.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/brandify/ai/cache"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/commons/logger"
)

const (
	DefaultURL     = "http://model-runner.docker.internal"
	DefaultEngine  = "llama.cpp"
	DefaultModel   = "ai/llama3.2:1B-Q8_0"
	DefaultTimeout = 60 * time.Second

	// ToolName is the function the model is forced to call.
	ToolName = "process_image"
)

var log = logger.GetLogger("ai")

// Config holds configuration for the model runner client
type Config struct {
	URL     string        `json:"url"`
	Engine  string        `json:"engine"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Client calls the model runner. It is safe for concurrent use.
type Client struct {
	http   *http.Client
	config Config
	brand  brand.Config
	cache  *cache.Cache
}

// New returns a client. An empty URL leaves the client unconfigured;
// other zero fields take their defaults.
func New(cfg Config, b brand.Config, c *cache.Cache) *Client {
	if cfg.Engine == "" {
		cfg.Engine = DefaultEngine
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		brand:  b,
		cache:  c,
	}
}

// Configured reports whether a runner URL is set.
func (c *Client) Configured() bool {
	return c != nil && c.config.URL != ""
}

// GetConfig returns the effective configuration.
func (c *Client) GetConfig() Config {
	return c.config
}

func (c *Client) completionsURL() string {
	return fmt.Sprintf("%s/engines/%s/v1/chat/completions", c.config.URL, c.config.Engine)
}

// StyleParams are the process_image tool arguments.
type StyleParams struct {
	StyleName        string            `json:"style_name"`
	ColorAdjustments map[string]string `json:"color_adjustments,omitempty"`
	AddLogo          *bool             `json:"add_logo,omitempty"`
	LogoPosition     string            `json:"logo_position,omitempty"`
}

// Map returns the params as generic metadata.
func (p StyleParams) Map() map[string]any {
	m := map[string]any{"style_name": p.StyleName}
	if len(p.ColorAdjustments) > 0 {
		m["color_adjustments"] = p.ColorAdjustments
	}
	if p.AddLogo != nil {
		m["add_logo"] = *p.AddLogo
	}
	if p.LogoPosition != "" {
		m["logo_position"] = p.LogoPosition
	}
	return m
}

// StyleResponse is a parsed tool call.
type StyleResponse struct {
	Params       StyleParams
	Model        string
	TokensInput  int
	TokensOutput int
	TokensTotal  int
	Duration     time.Duration
	CacheHit     bool
}

// RequestStyle sends the artifact at inputPath to the model and returns
// the process_image arguments it chose. A response without that tool call
// is an UpstreamServiceError.
func (c *Client) RequestStyle(ctx context.Context, inputPath, templateID string) (*StyleResponse, error) {
	if !c.Configured() {
		return nil, errs.New(errs.UpstreamServiceError, "model runner URL not configured")
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to read %s", filepath.Base(inputPath))
	}
	_, id := c.brand.ResolveTemplate(templateID)
	digest := cache.Digest(data)

	if c.cache != nil {
		if entry, err := c.cache.Get(c.config.Model, id, digest); err == nil {
			params, err := parseArguments(entry.Arguments)
			if err == nil {
				return &StyleResponse{
					Params:       params,
					Model:        entry.Model,
					TokensInput:  entry.TokensInput,
					TokensOutput: entry.TokensOutput,
					TokensTotal:  entry.TokensTotal,
					CacheHit:     true,
				}, nil
			}
			log.Warnf("Ignoring unreadable cache entry %s: %v", entry.CacheKey, err)
		}
	}

	body := c.buildRequest(id, inputPath, data)
	start := time.Now()
	resp, err := c.complete(ctx, body)
	if err != nil {
		return nil, err
	}

	args, err := resp.toolArguments()
	if err != nil {
		return nil, err
	}
	params, err := parseArguments(args)
	if err != nil {
		return nil, err
	}

	result := &StyleResponse{
		Params:       params,
		Model:        c.config.Model,
		TokensInput:  resp.Usage.PromptTokens,
		TokensOutput: resp.Usage.CompletionTokens,
		TokensTotal:  resp.Usage.TotalTokens,
		Duration:     time.Since(start),
	}
	if resp.Model != "" {
		result.Model = resp.Model
	}

	if c.cache != nil {
		if err := c.cache.Set(&cache.Entry{
			Model:        c.config.Model,
			Template:     id,
			InputDigest:  digest,
			Arguments:    args,
			TokensInput:  result.TokensInput,
			TokensOutput: result.TokensOutput,
			TokensTotal:  result.TokensTotal,
			DurationMS:   result.Duration.Milliseconds(),
		}); err != nil {
			log.Warnf("Failed to cache tool call: %v", err)
		}
	}
	return result, nil
}

func parseArguments(args string) (StyleParams, error) {
	var params StyleParams
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return params, errs.Wrap(errs.UpstreamServiceError, err, "tool call arguments are not valid JSON")
	}
	if params.StyleName == "" {
		return params, errs.New(errs.UpstreamServiceError, "tool call is missing style_name")
	}
	return params, nil
}

func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".svg" {
		return "image/svg+xml"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "application/octet-stream"
}

func (c *Client) systemPrompt(templateID string) string {
	return fmt.Sprintf(`You are an expert in corporate branding and image style conversion.
Your task is to analyze the provided image and apply the company's %s style to it.
Use the following brand guidelines:
- Primary color: %s
- Secondary color: %s
- Logo position: %s
- Font family: %s`,
		templateID,
		c.brand.Colors.Primary,
		c.brand.Colors.Secondary,
		c.brand.Watermark.Position.OrDefault(),
		c.brand.Fonts.Primary)
}

func (c *Client) buildRequest(templateID, inputPath string, data []byte) chatRequest {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType(inputPath), base64.StdEncoding.EncodeToString(data))
	return chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt(templateID)},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf("Convert this image to match our company's %s style.", templateID)},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			}},
		},
		Tools:      []tool{processImageTool()},
		ToolChoice: toolChoice{Type: "function", Function: toolName{Name: ToolName}},
	}
}

func (c *Client) complete(ctx context.Context, body chatRequest) (*chatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errs.Wrap(errs.ProcessingError, err, "failed to encode chat request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.completionsURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "invalid model runner request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "model runner unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errs.Wrap(errs.UpstreamServiceError,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			"model runner rejected the request")
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "malformed model runner response")
	}
	return &out, nil
}

// ListModels returns the model ids served by the engine.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if !c.Configured() {
		return nil, errs.New(errs.UpstreamServiceError, "model runner URL not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/engines/%s/v1/models", c.config.URL, c.config.Engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "invalid model runner request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "model runner unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.UpstreamServiceError, "model runner returned status %d", resp.StatusCode)
	}

	var list struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "malformed model list")
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
