// Package views holds the server-rendered wizard and dashboard pages.
package views

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed *.html
var files embed.FS

// Parse loads every page template with the shared helpers
func Parse(funcs template.FuncMap) (*template.Template, error) {
	base := template.FuncMap{
		"lower": strings.ToLower,
		"add":   func(a, b int) int { return a + b },
	}
	for name, fn := range funcs {
		base[name] = fn
	}
	return template.New("pages").Funcs(base).ParseFS(files, "*.html")
}
