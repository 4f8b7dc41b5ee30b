package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"math"
	"net/http"
	"strings"

	"vizninja/domain/dataset"
)

var pages = []string{"home.html", "explore.html", "visualizations.html", "regression.html"}

var funcMap = template.FuncMap{
	"num": func(v interface{}) string {
		switch n := v.(type) {
		case nil:
			return "-"
		case float64:
			if math.Trunc(n) == n && math.Abs(n) < 1e15 {
				return fmt.Sprintf("%.0f", n)
			}
			return fmt.Sprintf("%.4g", n)
		case string:
			return n
		default:
			return fmt.Sprint(n)
		}
	},
	"fixed": func(v float64, digits int) string {
		return fmt.Sprintf("%.*f", digits, v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v*100)
	},
	"title": func(s string) string {
		words := strings.Fields(strings.ReplaceAll(s, "_", " "))
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		return strings.Join(words, " ")
	},
	"stat": func(m map[string]dataset.NumericStats, col string) *dataset.NumericStats {
		if st, ok := m[col]; ok {
			return &st
		}
		return nil
	},
	"imgsrc": func(s string) template.URL {
		// payloads were validated as image URLs or data URIs
		return template.URL(s)
	},
}

func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcMap).ParseFS(embeddedFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", page, err)
		}
		out[page] = t
	}
	return out, nil
}

// renderTemplate renders page into a buffer first so template errors never
// produce a half-written response
func (a *App) renderTemplate(w http.ResponseWriter, status int, page string, data interface{}) {
	t, ok := a.templates[page]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Printf("[UI] Template error for %s: %v", page, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[UI] Error writing response: %v", err)
	}
}
