package detect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/flanksource/brandify/errs"
	"github.com/srwiley/oksvg"
)

// Info summarizes an artifact for display.
type Info struct {
	Path       string  `json:"path" pretty:"label=File"`
	Format     Format  `json:"format" pretty:"label=Format"`
	Excalidraw bool    `json:"excalidraw" pretty:"label=Excalidraw"`
	Size       int64   `json:"size" pretty:"label=Size (bytes)"`
	Width      float64 `json:"width,omitempty" pretty:"label=Width"`
	Height     float64 `json:"height,omitempty" pretty:"label=Height"`
	// Elements is the scene element count for json-scene inputs.
	Elements int `json:"elements,omitempty" pretty:"label=Elements"`
}

// Inspect detects the format of path and reads its dimensions.
func Inspect(path string) (Info, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return Info{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, errs.Wrap(errs.IOError, err, "failed to read %s", path)
	}

	info := Info{
		Path:       path,
		Format:     format,
		Size:       int64(len(data)),
		Excalidraw: LooksLikeExcalidrawData(path, data),
	}

	switch format {
	case Raster:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return info, errs.Wrap(errs.ProcessingError, err, "failed to decode image header")
		}
		info.Width, info.Height = float64(cfg.Width), float64(cfg.Height)
	case SVG:
		icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
		if err != nil {
			return info, errs.Wrap(errs.ProcessingError, err, "failed to parse SVG")
		}
		info.Width, info.Height = icon.ViewBox.W, icon.ViewBox.H
	case JSONScene:
		n, err := countElements(data)
		if err != nil {
			return info, errs.Wrap(errs.ProcessingError, err, "failed to parse scene")
		}
		info.Elements = n
	}
	return info, nil
}

func countElements(data []byte) (int, error) {
	var doc struct {
		Elements []any `json:"elements"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("scene is not a JSON object: %w", err)
	}
	return len(doc.Elements), nil
}
