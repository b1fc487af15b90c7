package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/flanksource/brandify/brand"
	"github.com/flanksource/brandify/convert"
	"github.com/flanksource/brandify/detect"
	"github.com/flanksource/brandify/errs"
	"github.com/flanksource/brandify/transform"
	"github.com/samber/lo"
)

// OutputFormats are the accepted values of the outputFormat field.
var OutputFormats = []string{"svg", "png", "jpg", "jpeg", "json"}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type templatesResponse struct {
	Templates []brand.TemplateInfo `json:"templates"`
	Message   string               `json:"message,omitempty"`
}

// ConvertResponse is the body of a successful POST /api/convert.
type ConvertResponse struct {
	Success      bool               `json:"success"`
	InputFile    string             `json:"inputFile"`
	OutputFile   string             `json:"outputFile"`
	OriginalURL  string             `json:"originalUrl"`
	ConvertedURL string             `json:"convertedUrl"`
	TemplateName string             `json:"templateName"`
	Metadata     transform.Metadata `json:"metadata"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Message: errs.Message(err), Error: err.Error()})
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.UnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case errs.UpstreamServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) templates(w http.ResponseWriter, r *http.Request) {
	if s.remote.Configured() {
		templates, err := s.remote.Templates(r.Context())
		if err == nil {
			writeJSON(w, http.StatusOK, templatesResponse{Templates: templates})
			return
		}
		log.Warnf("Falling back to local templates: %v", err)
		writeJSON(w, http.StatusOK, templatesResponse{
			Templates: s.brand.TemplateList(),
			Message:   "Retrieved from local configuration due to style service error",
		})
		return
	}
	writeJSON(w, http.StatusOK, templatesResponse{
		Templates: s.brand.TemplateList(),
		Message:   "Retrieved from local configuration",
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.opts.Version,
		"services": map[string]string{
			"mcp":         configured(s.remote.Configured()),
			"modelRunner": configured(s.model.Configured()),
		},
	})
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not_configured"
}

func (s *Server) modelRunnerStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"configured": s.model.Configured()}
	if s.model.Configured() {
		cfg := s.model.GetConfig()
		status["url"] = cfg.URL
		status["engine"] = cfg.Engine
		status["model"] = cfg.Model
	}
	writeJSON(w, http.StatusOK, status)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// stampedName prefixes a sanitized file name with the current unix nanos.
func stampedName(name string) string {
	name = unsafeName.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), name)
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid upload", Error: err.Error()})
		return
	}

	file, header, err := formFile(r, "file", "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No file uploaded"})
		return
	}
	defer file.Close()

	format, err := detect.DetectFormat(header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	outputFormat := strings.ToLower(strings.TrimPrefix(r.FormValue("outputFormat"), "."))
	if outputFormat == "" {
		outputFormat = defaultOutputFormat(format, header.Filename)
	}
	if !lo.Contains(OutputFormats, outputFormat) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: fmt.Sprintf("Unsupported output format %q", outputFormat),
			Error:   "expected one of " + strings.Join(OutputFormats, ", "),
		})
		return
	}
	if !convert.CanProduce(format, outputFormat) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: fmt.Sprintf("Cannot convert %s input to %s", format, outputFormat),
			Error:   "expected one of " + strings.Join(convert.Targets[format], ", "),
		})
		return
	}

	input, err := s.saveUpload(file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}

	stem := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	output := filepath.Join(s.ConvertedDir(), stampedName(stem+"-converted."+outputFormat))
	templateID := r.FormValue("template")

	result, err := s.chain.Run(r.Context(), convert.Request{Input: input, Output: output, TemplateID: templateID})
	if err != nil {
		log.Errorf("Failed to convert %s: %v", header.Filename, err)
		writeJSON(w, statusFor(err), errorResponse{Message: "Failed to process image", Error: err.Error()})
		return
	}

	base := baseURL(r)
	templateName := templateID
	if result.Metadata.TemplateApplied != "" {
		templateName = result.Metadata.TemplateApplied
	}
	writeJSON(w, http.StatusOK, ConvertResponse{
		Success:      true,
		InputFile:    filepath.Base(input),
		OutputFile:   filepath.Base(result.Output),
		OriginalURL:  base + "/uploads/" + filepath.Base(input),
		ConvertedURL: base + "/uploads/converted/" + filepath.Base(result.Output),
		TemplateName: templateName,
		Metadata:     result.Metadata,
	})
}

func formFile(r *http.Request, fields ...string) (multipart.File, *multipart.FileHeader, error) {
	var err error
	for _, field := range fields {
		var file multipart.File
		var header *multipart.FileHeader
		if file, header, err = r.FormFile(field); err == nil {
			return file, header, nil
		}
	}
	return nil, nil, err
}

func defaultOutputFormat(format detect.Format, name string) string {
	switch format {
	case detect.JSONScene:
		return "json"
	case detect.Raster:
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	default:
		return "svg"
	}
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.opts.UploadsDir, 0o755); err != nil {
		return "", errs.Wrap(errs.IOError, err, "failed to create uploads directory")
	}
	path := filepath.Join(s.opts.UploadsDir, stampedName(name))
	dst, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(errs.IOError, err, "failed to store upload")
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", errs.Wrap(errs.IOError, err, "failed to store upload")
	}
	return path, nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
