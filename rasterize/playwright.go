package rasterize

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightConverter screenshots the SVG in headless Chromium. The
// browser is installed and launched on first use and reused afterwards.
type PlaywrightConverter struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewPlaywrightConverter() *PlaywrightConverter {
	return &PlaywrightConverter{}
}

func (c *PlaywrightConverter) Name() string {
	return "playwright"
}

// IsAvailable is always true: installation happens lazily in Convert.
func (c *PlaywrightConverter) IsAvailable() bool {
	return true
}

func (c *PlaywrightConverter) SupportedFormats() []string {
	return []string{"png", "jpg", "jpeg"}
}

func (c *PlaywrightConverter) launch() (playwright.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	if err := playwright.Install(&playwright.RunOptions{
		Browsers: []string{"chromium"},
	}); err != nil {
		return nil, NewConverterError(c.Name(), "install browsers", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, NewConverterError(c.Name(), "start playwright", err)
	}
	browser, err := pw.Chromium.Launch()
	if err != nil {
		_ = pw.Stop()
		return nil, NewConverterError(c.Name(), "launch browser", err)
	}
	c.pw, c.browser = pw, browser
	return browser, nil
}

func (c *PlaywrightConverter) Convert(ctx context.Context, svgPath, outputPath string, options *Options) error {
	if options == nil {
		options = DefaultOptions()
	}
	format := strings.ToLower(options.Format)
	if !supports(c, format) {
		return NewConverterError(c.Name(), "convert", fmt.Errorf("unsupported format: %s", format))
	}
	if err := ctx.Err(); err != nil {
		return NewConverterError(c.Name(), "convert", err)
	}

	browser, err := c.launch()
	if err != nil {
		return err
	}

	svgContent, err := os.ReadFile(svgPath)
	if err != nil {
		return NewConverterError(c.Name(), "read SVG", err)
	}

	page, err := browser.NewPage()
	if err != nil {
		return NewConverterError(c.Name(), "create page", err)
	}
	defer page.Close()

	background := "transparent"
	if options.BackgroundColor != "" {
		background = options.BackgroundColor
	}
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        body { margin: 0; padding: 0; background: %s; }
        svg { display: block; }
    </style>
</head>
<body>
    %s
</body>
</html>`, background, string(svgContent))

	if err := page.SetContent(html); err != nil {
		return NewConverterError(c.Name(), "set content", err)
	}
	if options.Width > 0 && options.Height > 0 {
		if err := page.SetViewportSize(options.Width, options.Height); err != nil {
			return NewConverterError(c.Name(), "set viewport", err)
		}
	}

	screenshot := playwright.PageScreenshotOptions{
		Path:           &outputPath,
		Type:           playwright.ScreenshotTypePng,
		OmitBackground: playwright.Bool(options.BackgroundColor == ""),
	}
	if format != "png" {
		quality := options.Quality
		if quality <= 0 {
			quality = 95
		}
		screenshot.Type = playwright.ScreenshotTypeJpeg
		screenshot.Quality = &quality
		screenshot.OmitBackground = nil
	}
	if _, err := page.Screenshot(screenshot); err != nil {
		return NewConverterError(c.Name(), "screenshot", err)
	}
	return nil
}

// Close stops the browser and the Playwright driver.
func (c *PlaywrightConverter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			return err
		}
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil {
			return err
		}
		c.pw = nil
	}
	return nil
}
