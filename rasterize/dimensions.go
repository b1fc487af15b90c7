package rasterize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	rootTag      = regexp.MustCompile(`(?s)<svg\b[^>]*>`)
	attrPattern  = regexp.MustCompile(`\b(width|height|viewBox)\s*=\s*"([^"]*)"`)
	unitSuffixes = []string{"px", "pt", "pc", "mm", "cm", "in"}
)

// Dimensions returns the size of an SVG document from the root element's
// width/height attributes, falling back to its viewBox.
func Dimensions(svg []byte) (float64, float64, error) {
	tag := rootTag.Find(svg)
	if tag == nil {
		return 0, 0, fmt.Errorf("no <svg> element")
	}

	attrs := map[string]string{}
	for _, m := range attrPattern.FindAllSubmatch(tag, -1) {
		attrs[string(m[1])] = string(m[2])
	}

	width, wok := parseLength(attrs["width"])
	height, hok := parseLength(attrs["height"])
	if wok && hok {
		return width, height, nil
	}

	if box := strings.Fields(strings.ReplaceAll(attrs["viewBox"], ",", " ")); len(box) == 4 {
		w, err1 := strconv.ParseFloat(box[2], 64)
		h, err2 := strconv.ParseFloat(box[3], 64)
		if err1 == nil && err2 == nil && w > 0 && h > 0 {
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("could not extract SVG dimensions")
}

func parseLength(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasSuffix(v, "%") {
		return 0, false
	}
	for _, unit := range unitSuffixes {
		v = strings.TrimSuffix(v, unit)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
