package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// PasswordReset names the reset notice template set.
const PasswordReset = "password_reset"

const timestampLayout = "2006-01-02 15:04 MST"

// Message is a rendered notice ready for delivery.
type Message struct {
	Subject string
	Body    string
}

// PasswordResetData fills the password reset notice.
type PasswordResetData struct {
	Name       string
	Identifier string
	Link       string
	ExpiresAt  time.Time
}

// Engine renders the notices embedded in the package. Each notice is a pair
// of templates named "<notice>.subject" and "<notice>.body".
type Engine struct {
	templates *template.Template
}

var funcs = template.FuncMap{
	"timestamp": func(t time.Time) string { return t.UTC().Format(timestampLayout) },
}

// New parses every embedded template. Missing data keys fail at render time.
func New() (*Engine, error) {
	t, err := template.New("render").
		Funcs(funcs).
		Option("missingkey=error").
		ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Engine{templates: t}, nil
}

// Message renders the subject and body of notice.
func (e *Engine) Message(notice string, data any) (Message, error) {
	if e == nil || e.templates == nil {
		return Message{}, errors.New("nil engine")
	}

	subject, err := e.execute(notice+".subject", data)
	if err != nil {
		return Message{}, err
	}
	body, err := e.execute(notice+".body", data)
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: strings.TrimSpace(subject), Body: body}, nil
}

// PasswordReset renders the reset notice sent after a forgot-password request.
func (e *Engine) PasswordReset(d PasswordResetData) (Message, error) {
	if d.Link == "" {
		return Message{}, errors.New("reset link is required")
	}
	return e.Message(PasswordReset, d)
}

func (e *Engine) execute(name string, data any) (string, error) {
	if e.templates.Lookup(name) == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
