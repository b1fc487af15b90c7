package rasterize

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/flanksource/commons/logger"
)

var log = logger.GetLogger("rasterize")

// Manager tries its converters in priority order until one succeeds.
type Manager struct {
	converters []Converter
	preferred  string
	mu         sync.RWMutex
}

// NewManager registers the available converters among those given, in
// order.
func NewManager(converters ...Converter) *Manager {
	m := &Manager{}
	for _, c := range converters {
		if c.IsAvailable() {
			m.converters = append(m.converters, c)
		}
	}
	return m
}

// NewDefaultManager detects external tools and always ends with oksvg:
// rsvg-convert, inkscape, playwright (only when enabled), oksvg.
func NewDefaultManager(enablePlaywright bool) *Manager {
	converters := []Converter{NewRSVGConverter(), NewInkscapeConverter()}
	if enablePlaywright {
		converters = append(converters, NewPlaywrightConverter())
	}
	converters = append(converters, NewOKSVGConverter())
	m := NewManager(converters...)
	log.Debugf("SVG converters: %v", m.Available())
	return m
}

// SetPreferred moves the named converter to the front of the chain.
func (m *Manager) SetPreferred(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.converters {
		if c.Name() == name {
			m.preferred = name
			return nil
		}
	}
	return fmt.Errorf("converter '%s' not available", name)
}

// Available returns the names of the registered converters.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.converters))
	for i, c := range m.converters {
		names[i] = c.Name()
	}
	return names
}

func (m *Manager) ordered() []Converter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Converter, 0, len(m.converters))
	for _, c := range m.converters {
		if c.Name() == m.preferred {
			out = append(out, c)
		}
	}
	for _, c := range m.converters {
		if c.Name() != m.preferred {
			out = append(out, c)
		}
	}
	return out
}

// ConvertWithFallback tries each converter supporting options.Format.
func (m *Manager) ConvertWithFallback(ctx context.Context, svgPath, outputPath string, options *Options) error {
	if options == nil {
		options = DefaultOptions()
	}

	var lastErr error
	for _, c := range m.ordered() {
		if !supports(c, options.Format) {
			continue
		}
		err := c.Convert(ctx, svgPath, outputPath, options)
		if err == nil {
			log.Debugf("Rasterized %s with %s", svgPath, c.Name())
			return nil
		}
		log.Debugf("%s failed: %v", c.Name(), err)
		lastErr = fmt.Errorf("%s: %w", c.Name(), err)
		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		return fmt.Errorf("no converter supports format '%s'", options.Format)
	}
	return fmt.Errorf("all converters failed, last error: %w", lastErr)
}

// Rasterize renders an in-memory SVG document to outputPath at the SVG's
// own size. The format follows outputPath's extension.
func (m *Manager) Rasterize(ctx context.Context, svg []byte, outputPath string) error {
	format, err := FormatForPath(outputPath)
	if err != nil {
		return err
	}

	options := DefaultOptions()
	options.Format = format
	if w, h, err := Dimensions(svg); err == nil {
		options.Width = int(math.Round(w))
		options.Height = int(math.Round(h))
	}

	tmp, err := os.CreateTemp("", "brandify-*.svg")
	if err != nil {
		return fmt.Errorf("failed to stage SVG: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(svg); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage SVG: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage SVG: %w", err)
	}

	return m.ConvertWithFallback(ctx, tmp.Name(), outputPath, options)
}

// Close releases converters that hold resources, such as a browser.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.converters {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}
