// Package web renders the site's pages. Every page handler also answers with the
// page's JSON view-model when the client asks for application/json.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates holds the parsed HTML templates for the web interface.
type Templates struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"ordinal": humanize.Ordinal,
	"add":     func(a, b int) int { return a + b },
	"sub":     func(a, b int) int { return a - b },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

// NewTemplates creates a new Templates instance by parsing all embedded templates.
func NewTemplates() (*Templates, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Templates{templates: tmpl}, nil
}

// Render renders a named template with the provided data and status 200.
func (t *Templates) Render(w http.ResponseWriter, name string, data any) error {
	return t.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a named template with the given status code.
// Nothing is written when the template fails, so callers can still send an error.
func (t *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) error {
	tmpl := t.templates.Lookup(name)
	if tmpl == nil {
		return fmt.Errorf("template %q not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute template %q: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// ProjectStaticFileServer returns an http.Handler that serves static files from the project root.
func ProjectStaticFileServer(staticDir string) http.Handler {
	absPath, err := filepath.Abs(staticDir)
	if err != nil {
		panic(fmt.Sprintf("failed to get absolute path for static directory: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.Dir(absPath)))
}
