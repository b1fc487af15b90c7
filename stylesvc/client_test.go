package stylesvc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "diagram.svg")
	require.NoError(t, os.WriteFile(path, []byte("<svg/>"), 0o644))
	return path
}

func TestProcess(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"output":{"processed_image":{"data":"` +
			base64.StdEncoding.EncodeToString([]byte("styled")) + `"},"metadata":{"engine":"v2"}}}`))
	}))
	defer srv.Close()

	c := New(Config{Endpoint: srv.URL + "/", APIKey: "secret"}, brand.Default())
	require.True(t, c.Configured())

	result, err := c.Process(context.Background(), input(t), "technical", "png")
	require.NoError(t, err)
	assert.Equal(t, []byte("styled"), result.Image)
	assert.Equal(t, "v2", result.Metadata["engine"])

	assert.Equal(t, "image_style_conversion", got.Type)
	assert.Equal(t, "svg", got.Input.Image.Format)
	assert.Equal(t, "technical", got.Input.Template)
	assert.Equal(t, "png", got.Input.Options.OutputFormat)
	assert.Equal(t, "#0066CC", got.Input.BrandConfig.ColorMapping["#1971c2"])
	require.NotNil(t, got.Input.BrandConfig.Watermark)
	assert.Equal(t, "bottom-left", got.Input.BrandConfig.Watermark.Position)

	decoded, err := base64.StdEncoding.DecodeString(got.Input.Image.Data)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(decoded))
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"output":`))
		}},
		{"missing image", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"output":{"metadata":{}}}`))
		}},
		{"bad base64", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"output":{"processed_image":{"data":"***"}}}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(Config{Endpoint: srv.URL, Timeout: 100 * time.Millisecond}, brand.Default())
			_, err := c.Process(context.Background(), input(t), "", "png")
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.UpstreamServiceError), err.Error())
		})
	}
}

func TestNotConfigured(t *testing.T) {
	c := New(Config{}, brand.Default())
	assert.False(t, c.Configured())

	_, err := c.Process(context.Background(), "x.svg", "", "svg")
	assert.True(t, errs.Is(err, errs.UpstreamServiceError))

	_, err = c.Templates(context.Background())
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mcp/templates", r.URL.Path)
		_, _ = w.Write([]byte(`{"templates":[{"id":"remote","name":"Remote"}]}`))
	}))
	defer srv.Close()

	list, err := New(Config{Endpoint: srv.URL + "/mcp"}, brand.Default()).Templates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []brand.TemplateInfo{{ID: "remote", Name: "Remote"}}, list)
}
