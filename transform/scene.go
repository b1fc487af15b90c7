package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/errs"
)

// TimestampFormat is ISO-8601 in UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

const sceneRasterMessage = "Excalidraw scenes cannot be rasterized without a scene renderer; the branded scene was saved as JSON"

// Scene brands Excalidraw scene documents element by element.
//
// Stroke widths are multiplied on every application, so branding an
// already branded scene thickens its lines again.
type Scene struct {
	cfg brand.Config
	// Now is the clock used for brandTimestamp.
	Now func() time.Time
}

func NewScene(cfg brand.Config) *Scene {
	return &Scene{cfg: cfg, Now: time.Now}
}

func (s *Scene) Name() string { return MethodJSON }

// Brand rewrites doc in place. Fields no rule targets are left untouched.
func (s *Scene) Brand(doc map[string]any, tpl brand.Template, templateID string) {
	if elements, ok := doc["elements"].([]any); ok {
		for _, e := range elements {
			if element, ok := e.(map[string]any); ok {
				s.brandElement(element, tpl)
			}
		}
	}

	appState, _ := doc["appState"].(map[string]any)
	if appState == nil {
		appState = map[string]any{}
	}
	appState["companyBranded"] = true
	appState["brandTemplate"] = templateID
	appState["brandTimestamp"] = s.Now().UTC().Format(TimestampFormat)
	doc["appState"] = appState
}

func (s *Scene) brandElement(element map[string]any, tpl brand.Template) {
	// Scene colors are always mapped; adjustColors only gates SVG markup.
	for _, key := range []string{"strokeColor", "backgroundColor"} {
		if src, ok := element[key].(string); ok {
			if to, mapped := s.cfg.MapColor(src); mapped {
				element[key] = to
			}
		}
	}
	if tpl.ReplaceFonts && element["type"] == "text" {
		element["fontFamily"] = s.cfg.Fonts.Primary
	}
	if width, ok := number(element["strokeWidth"]); ok {
		element["strokeWidth"] = width * tpl.LineThicknessMultiplier
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	}
	return 0, false
}

// DecodeScene parses a scene document keeping numbers exact.
func DecodeScene(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("scene is not a JSON object")
	}
	return doc, nil
}

// EncodeScene serializes doc with sorted keys and two-space indentation.
func EncodeScene(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Scene) Apply(_ context.Context, req Request) (*Result, error) {
	data, err := readInput(req.Input)
	if err != nil {
		return nil, err
	}
	doc, err := DecodeScene(data)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "failed to parse scene %s", filepath.Base(req.Input))
	}

	s.Brand(doc, req.Template, req.TemplateID)

	out, err := EncodeScene(doc)
	if err != nil {
		return nil, errs.Wrap(errs.ProcessingError, err, "failed to encode scene")
	}

	output, message := req.Output, ""
	if detect.IsRasterPath(req.Output) {
		output = sceneOutputPath(req.Input, req.Output)
		message = sceneRasterMessage
	}
	if err := WriteAtomic(output, out); err != nil {
		return nil, err
	}

	result := success(output, MethodJSON, req.TemplateID)
	result.Metadata.Message = message
	return result, nil
}

// sceneOutputPath swaps a raster extension for .json without clobbering
// the input.
func sceneOutputPath(input, requested string) string {
	out := strings.TrimSuffix(requested, filepath.Ext(requested)) + ".json"
	if sameFile(out, input) {
		out = strings.TrimSuffix(requested, filepath.Ext(requested)) + ".branded.json"
	}
	return out
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
