// Package render formats command output from embedded text templates.
package render

import (
	"embed"
	"fmt"
	"io"
	"text/tabwriter"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const dateLayout = "2006-01-02 15:04"

// Engine renders the embedded templates. Tab-separated cells are aligned into columns.
type Engine struct {
	templates *template.Template
}

// New parses every embedded template. Timestamps are shown in loc, or local time when nil.
func New(loc *time.Location) (*Engine, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{
		"date": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.In(loc).Format(dateLayout)
		},
	}
	t, err := template.New("render").Funcs(funcs).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{templates: t}, nil
}

// Render executes the named template with data into w.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	if e == nil || e.templates == nil {
		return fmt.Errorf("nil engine")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := e.templates.ExecuteTemplate(tw, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return tw.Flush()
}
