// Package view renders embedded HTML templates. Each HTTP module embeds its
// own template files and constructs a Renderer over them.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
)

// Renderer executes named templates from a parsed set.
type Renderer struct {
	tmpl *template.Template
	log  *slog.Logger
}

// New parses all templates matching the patterns from fsys. Panics on parse
// failure since templates are embedded at build time and a broken template is
// a programming error.
func New(fsys fs.FS, log *slog.Logger, patterns ...string) *Renderer {
	tmpl, err := template.ParseFS(fsys, patterns...)
	if err != nil {
		panic(fmt.Sprintf("view: failed to parse templates: %v", err))
	}
	return &Renderer{tmpl: tmpl, log: log}
}

// Render executes the named template into the response. The template runs
// into a buffer first so a mid-render failure does not leak half a page with
// a 200 status.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		r.log.Error("template execution failed",
			slog.String("template", name),
			slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
