// Package stylesvc talks to the remote style-conversion service, the first
// tier of the conversion chain. The service takes a base64 image plus the
// brand description and answers with the styled image.
package stylesvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/commons/logger"
)

// DefaultTimeout bounds every call to the service.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps the decoded response body.
const maxResponseSize = 64 << 20

// Config points the client at a service.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	http   *http.Client
	config Config
	brand  brand.Config
}

// New returns a client for cfg. A zero timeout means DefaultTimeout.
func New(cfg Config, b brand.Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &Client{
		http:   &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		brand:  b,
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.config.Endpoint != ""
}

// Endpoint returns the configured service URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

type imagePayload struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

type watermarkPayload struct {
	Label    string  `json:"label"`
	Position string  `json:"position"`
	Opacity  float64 `json:"opacity"`
}

type brandPayload struct {
	Colors       []string          `json:"colors"`
	ColorMapping map[string]string `json:"color_mapping,omitempty"`
	FontFamily   string            `json:"font_family"`
	Watermark    *watermarkPayload `json:"watermark,omitempty"`
	LineScale    float64           `json:"line_thickness_multiplier"`
}

type optionsPayload struct {
	PreserveContent bool   `json:"preserve_content"`
	Quality         int    `json:"quality"`
	OutputFormat    string `json:"output_format"`
}

type request struct {
	Type  string `json:"type"`
	Input struct {
		Image       imagePayload   `json:"image"`
		Template    string         `json:"template"`
		BrandConfig brandPayload   `json:"brand_config"`
		Options     optionsPayload `json:"options"`
	} `json:"input"`
}

type response struct {
	Output *struct {
		ProcessedImage *struct {
			Data string `json:"data"`
		} `json:"processed_image"`
		Metadata map[string]any `json:"metadata"`
	} `json:"output"`
}

// Result is a styled image returned by the service.
type Result struct {
	Image    []byte
	Metadata map[string]any
}

func (c *Client) brandFor(tpl brand.Template) brandPayload {
	p := brandPayload{
		Colors:     []string{c.brand.Colors.Primary, c.brand.Colors.Secondary, c.brand.Colors.Accent},
		FontFamily: c.brand.Fonts.Primary,
		LineScale:  tpl.LineThicknessMultiplier,
	}
	if tpl.AdjustColors {
		p.ColorMapping = map[string]string{}
		for _, pair := range c.brand.ColorMapping {
			p.ColorMapping[pair.From] = pair.To
		}
	}
	if tpl.AddWatermark {
		p.Watermark = &watermarkPayload{
			Label:    c.brand.Watermark.Label,
			Position: string(c.brand.WatermarkPosition(tpl)),
			Opacity:  c.brand.Watermark.Opacity,
		}
	}
	return p
}

// Process sends the image at inputPath for styling with templateID and
// returns the decoded result. outputFormat is the desired extension
// without the dot.
func (c *Client) Process(ctx context.Context, inputPath, templateID, outputFormat string) (*Result, error) {
	if !c.Configured() {
		return nil, errs.New(errs.UpstreamServiceError, "style service endpoint not configured")
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to read %s", filepath.Base(inputPath))
	}

	tpl, id := c.brand.ResolveTemplate(templateID)
	var req request
	req.Type = "image_style_conversion"
	req.Input.Image = imagePayload{
		Data:   base64.StdEncoding.EncodeToString(data),
		Format: formatOf(inputPath),
	}
	req.Input.Template = id
	req.Input.BrandConfig = c.brandFor(tpl)
	req.Input.Options = optionsPayload{PreserveContent: true, Quality: 90, OutputFormat: outputFormat}

	var resp response
	if err := c.do(ctx, http.MethodPost, c.config.Endpoint, req, &resp); err != nil {
		return nil, err
	}
	if resp.Output == nil || resp.Output.ProcessedImage == nil || resp.Output.ProcessedImage.Data == "" {
		return nil, errs.New(errs.UpstreamServiceError, "style service response has no processed image")
	}
	image, err := base64.StdEncoding.DecodeString(resp.Output.ProcessedImage.Data)
	if err != nil {
		return nil, errs.Wrap(errs.UpstreamServiceError, err, "style service returned invalid image data")
	}
	return &Result{Image: image, Metadata: resp.Output.Metadata}, nil
}

// Templates lists the templates the service knows about.
func (c *Client) Templates(ctx context.Context) ([]brand.TemplateInfo, error) {
	if !c.Configured() {
		return nil, errs.New(errs.UpstreamServiceError, "style service endpoint not configured")
	}
	var resp struct {
		Templates []brand.TemplateInfo `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, c.config.Endpoint+"/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, v any) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.ProcessingError, err, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errs.Wrap(errs.UpstreamServiceError, err, "invalid style service request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.UpstreamServiceError, err, "style service unreachable")
	}
	defer resp.Body.Close()
	logger.Debugf("%s %s -> %d (%s)", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.Wrap(errs.UpstreamServiceError, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
			"style service rejected the request")
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(v); err != nil {
		return errs.Wrap(errs.UpstreamServiceError, err, "malformed style service response")
	}
	return nil
}

func formatOf(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "png"
	}
	return ext
}
