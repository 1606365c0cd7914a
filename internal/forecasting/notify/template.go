package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Forecast {{.CategoryLabel}}]
Grid: {{.Grid}}
{{ if .Subject }}Subject: {{.Subject}}
{{ end }}Risk: {{.RiskLevel}}
Detail: {{.Detail}}
As of: {{.AsOf}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	Grid          string
	Subject       string
	Category      string
	CategoryLabel string
	RiskLevel     string
	Detail        string
	AsOf          string
	Suggestion    string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("forecast-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
