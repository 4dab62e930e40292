package util

import (
	"bytes"
	"fmt"
	"text/template"
)

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// Template is a parsed prompt template.
type Template struct {
	tmpl *template.Template
}

// MustParseTemplate parses text once and panics on syntax errors. Intended
// for package level prompt constants.
func MustParseTemplate(name, text string) *Template {
	return &Template{tmpl: template.Must(template.New(name).Funcs(funcs).Parse(text))}
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.tmpl.Name(), err)
	}

	return buf.String(), nil
}
