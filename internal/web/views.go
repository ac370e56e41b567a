// Package web renders the HTML pages of the tracker.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/tickets/internal/domain"
	"github.com/spec-kit/tickets/internal/flash"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "templates/layout.html"

// Views implements fiber.Views over the embedded templates. Each page is
// parsed together with the shared layout.
type Views struct {
	mu    sync.RWMutex
	pages map[string]*template.Template
}

// NewViews returns an unloaded view set.
func NewViews() *Views {
	return &Views{}
}

// Load parses every page template.
func (v *Views) Load() error {
	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templatesFS, layoutFile, file)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	v.mu.Lock()
	v.pages = pages
	v.mu.Unlock()
	return nil
}

// Render executes page name inside the layout.
func (v *Views) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	v.mu.RLock()
	tmpl, ok := v.pages[name]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

var funcs = template.FuncMap{
	"due": func(t domain.Ticket) string {
		if t.DueAt == nil {
			return ""
		}
		if t.DueAt.Hour() == 0 && t.DueAt.Minute() == 0 {
			return t.DueAt.Format(domain.DateLayout)
		}
		return t.DueAt.Format("2006-01-02 15:04")
	},
	"tags":  func(t domain.Ticket) []string { return t.TagList() },
	"open":  func(t domain.Ticket) bool { return t.IsOpen() },
	"short": func(t domain.Ticket) string { return t.ShortID() },
	"stamp": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"day": func(t time.Time) string { return t.Format(domain.DateLayout) },
	"dayNum": func(t time.Time) int { return t.Day() },
	"weekday": func(t time.Time) string { return t.Format("Mon") },
	"isToday": func(t time.Time, today string) bool { return t.Format(domain.DateLayout) == today },
	"leadingBlanks": func(first time.Time) []struct{} {
		return make([]struct{}, (int(first.Weekday())+6)%7)
	},
}

// Page is the data shared by every rendered page.
type Page struct {
	Title   string
	Active  string
	Theme   string
	Flashes []flash.Message
	Today   string
}
