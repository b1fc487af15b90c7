// Package detect classifies input artifacts by file extension and sniffs
// whether they were produced by Excalidraw.
package detect

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/brandify/errs"
)

// Format is the artifact family that selects a transform strategy.
type Format string

const (
	SVG       Format = "svg"
	JSONScene Format = "json-scene"
	Raster    Format = "raster"
)

var extensions = map[string]Format{
	".svg":  SVG,
	".json": JSONScene,
	".png":  Raster,
	".jpg":  Raster,
	".jpeg": Raster,
}

// DetectFormat maps the lowercased extension of path to a Format. It never
// touches the filesystem.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	if ext == "" {
		return "", errs.New(errs.UnsupportedFormat, "unsupported file type: %s has no extension", filepath.Base(path))
	}
	return "", errs.New(errs.UnsupportedFormat, "unsupported file type: %s", ext)
}

// IsRasterPath reports whether path names a PNG or JPEG file.
func IsRasterPath(path string) bool {
	f, err := DetectFormat(path)
	return err == nil && f == Raster
}

// LooksLikeExcalidraw reads path and applies LooksLikeExcalidrawData.
// Unreadable files are not Excalidraw.
func LooksLikeExcalidraw(path string) bool {
	format, err := DetectFormat(path)
	if err != nil {
		return false
	}
	if format == Raster {
		return LooksLikeExcalidrawData(path, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return LooksLikeExcalidrawData(path, data)
}

var svgMarkers = [][]byte{
	[]byte("excalidraw"),
	[]byte("Made with Excalidraw"),
	[]byte(`data-source="excalidraw"`),
}

// LooksLikeExcalidrawData applies the per-format heuristic to data already
// in memory. name only supplies the extension, and for rasters the
// filename itself is the only signal.
func LooksLikeExcalidrawData(name string, data []byte) bool {
	format, err := DetectFormat(name)
	if err != nil {
		return false
	}
	switch format {
	case JSONScene:
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return false
		}
		if doc["type"] == "excalidraw" {
			return true
		}
		_, isArray := doc["elements"].([]any)
		return isArray
	case SVG:
		for _, marker := range svgMarkers {
			if bytes.Contains(data, marker) {
				return true
			}
		}
		return false
	default:
		return strings.Contains(strings.ToLower(filepath.Base(name)), "excalidraw")
	}
}
