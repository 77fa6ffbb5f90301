// Package renderer turns portfolios and rebalance plans into markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

var funcs = template.FuncMap{
	"join": strings.Join,
}

// RenderPortfolio renders the holdings table of a portfolio.
func RenderPortfolio(v *Portfolio) string {
	partials := map[string]string{
		"warnings": "warnings.md",
	}
	return renderTemplate("portfolio", "portfolio.md", partials, v)
}

// RenderPlan renders a rebalance plan, sells first.
func RenderPlan(v *Plan) string {
	partials := map[string]string{
		"plan_trades": "plan_trades.md",
		"warnings":    "warnings.md",
	}
	return renderTemplate("plan", "plan.md", partials, v)
}

// RenderList renders the names of the stored portfolios.
func RenderList(names []string) string {
	return renderTemplate("list", "list.md", nil, names)
}

// RenderSearch renders security search results.
func RenderSearch(rows []SearchRow) string {
	return renderTemplate("search", "search.md", nil, rows)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
