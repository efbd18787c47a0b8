package view

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/pistigreen/pistigreen-backend/web"
)

// Template names.
const (
	ActivationText = "mail/activation.txt"
	ActivationHTML = "mail/activation.html"
)

// Engine renders the embedded email templates.
type Engine struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// ActivationData is the view model for the activation email.
type ActivationData struct {
	Name  string
	Email string
	Link  string
}

// NewEngine parses templates at start-up.
func NewEngine() (*Engine, error) {
	text, err := texttemplate.New("root").ParseFS(web.Templates, "templates/mail/*.txt")
	if err != nil {
		return nil, fmt.Errorf("view: parse text templates: %w", err)
	}
	html, err := htmltemplate.New("root").ParseFS(web.Templates, "templates/mail/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse html templates: %w", err)
	}
	return &Engine{text: text, html: html}, nil
}

// RenderText executes a named plain text template.
func (e *Engine) RenderText(name string, data any) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.text.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderHTML executes a named HTML template with contextual escaping.
func (e *Engine) RenderHTML(name string, data any) (string, error) {
	if e == nil {
		return "", fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.html.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
