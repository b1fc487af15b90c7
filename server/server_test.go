package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flanksource/brandify/ai"
	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/stylesvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diagram = `<svg xmlns="http://www.w3.org/2000/svg" width="40" height="20"><rect stroke="#1971c2"/></svg>`

func newTestServer(t *testing.T, remote *stylesvc.Client, model *ai.Client) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := brand.Default()
	chain := convert.Chain{&convert.Builtin{Converter: convert.New(cfg, nil)}, convert.Copy{}}
	return New(Options{UploadsDir: dir, Version: "test"}, cfg, chain, remote, model), dir
}

func upload(t *testing.T, field, name, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, ai.New(ai.Config{URL: "http://runner"}, brand.Default(), nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, map[string]any{"mcp": "not_configured", "modelRunner": "configured"}, body["services"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestModelRunnerStatus(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model-runner/status", nil))
	assert.Equal(t, map[string]any{"configured": false}, decode(t, rec))

	s, _ = newTestServer(t, nil, ai.New(ai.Config{URL: "http://runner"}, brand.Default(), nil))
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/model-runner/status", nil))
	body := decode(t, rec)
	assert.Equal(t, true, body["configured"])
	assert.Equal(t, ai.DefaultModel, body["model"])
}

func TestTemplatesLocal(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	body := decode(t, rec)
	assert.Equal(t, "Retrieved from local configuration", body["message"])
	templates := body["templates"].([]any)
	assert.Len(t, templates, 4)
	assert.Equal(t, "default", templates[0].(map[string]any)["id"])
}

func TestTemplatesRemote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"templates":[{"id":"remote","name":"Remote"}]}`))
	}))
	defer srv.Close()

	s, _ := newTestServer(t, stylesvc.New(stylesvc.Config{Endpoint: srv.URL}, brand.Default()), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	body := decode(t, rec)
	assert.Nil(t, body["message"])
	assert.Equal(t, []any{map[string]any{"id": "remote", "name": "Remote"}}, body["templates"])
}

func TestTemplatesRemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s, _ := newTestServer(t, stylesvc.New(stylesvc.Config{Endpoint: srv.URL}, brand.Default()), nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	body := decode(t, rec)
	assert.Contains(t, body["message"], "local configuration")
	assert.Len(t, body["templates"], 4)
}

func TestConvert(t *testing.T) {
	s, dir := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, upload(t, "image", "my diagram.svg", diagram, map[string]string{"template": "technical"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ConvertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, "technical", resp.TemplateName)
	assert.Equal(t, "svg", resp.Metadata.ProcessMethod)
	assert.True(t, strings.HasSuffix(resp.InputFile, "-my_diagram.svg"))
	assert.True(t, strings.HasSuffix(resp.OutputFile, "-my_diagram-converted.svg"))
	assert.Equal(t, "http://example.com/uploads/converted/"+resp.OutputFile, resp.ConvertedURL)
	assert.Equal(t, "http://example.com/uploads/"+resp.InputFile, resp.OriginalURL)

	data, err := os.ReadFile(filepath.Join(dir, "converted", resp.OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `stroke="#0066CC"`)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/converted/"+resp.OutputFile, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(data), rec.Body.String())
}

func TestConvertNoFile(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, upload(t, "", "", "", map[string]string{"template": "default"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"message": "No file uploaded"}, decode(t, rec))
}

func TestConvertUnsupportedInput(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, upload(t, "file", "report.pdf", "%PDF", nil))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "unsupported")
}

func TestConvertBadOutputFormat(t *testing.T) {
	s, _ := newTestServer(t, nil, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, upload(t, "file", "d.svg", diagram, map[string]string{"outputFormat": "gif"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConvertIncompatibleOutputFormat(t *testing.T) {
	s, dir := newTestServer(t, nil, nil)
	for _, tc := range []struct{ name, content, output string }{
		{"d.svg", diagram, "json"},
		{"photo.png", "\x89PNG", "svg"},
		{"scene.json", `{"type":"excalidraw"}`, "png"},
	} {
		t.Run(tc.name+" to "+tc.output, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, upload(t, "file", tc.name, tc.content, map[string]string{"outputFormat": tc.output}))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode(t, rec)["message"], "Cannot convert")
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.True(t, e.IsDir(), "unexpected upload %s", e.Name())
	}
}

func TestStampedName(t *testing.T) {
	assert.Regexp(t, `^\d+-a_b.svg$`, stampedName("../a b.svg"))
	assert.Regexp(t, `^\d+-upload$`, stampedName(".."))
}
