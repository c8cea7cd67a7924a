package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// NotSpecified stands in for optional fields the visitor left empty.
const NotSpecified = "Не указано"

// ServiceRequestData is what the service request e-mail shows.
type ServiceRequestData struct {
	ServiceType string // display label
	Name        string
	Phone       string
	Message     string
	SourceURL   string
	SubmittedAt string
}

// HasMessage reports whether the message block should be rendered.
func (d ServiceRequestData) HasMessage() bool {
	return d.Message != "" && d.Message != NotSpecified
}

func RenderServiceRequest(data ServiceRequestData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "service_request.html", data); err != nil {
		return "", fmt.Errorf("render service request: %w", err)
	}
	return buf.String(), nil
}
