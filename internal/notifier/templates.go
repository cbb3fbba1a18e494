package notifier

import (
	"bytes"
	"embed"
	"strings"
	"text/template"
	"time"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// Templates holds parsed email templates.
type Templates struct {
	html  *template.Template
	plain *template.Template
}

// TemplateData contains data for template rendering.
type TemplateData struct {
	RecipientName string
	Symbol        string
	Direction     string
	TargetPrice   string
	ObservedPrice string
	// Sustained is empty for threshold alerts.
	Sustained   string
	FiredAt     string
	AccentColor string
}

// LoadTemplates loads embedded email templates.
func LoadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	htmlTmpl, err := template.New("alert.html").Funcs(funcs).ParseFS(templateFS, "templates/alert.html")
	if err != nil {
		return nil, err
	}

	plainTmpl, err := template.New("alert.txt").Funcs(funcs).ParseFS(templateFS, "templates/alert.txt")
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// RenderHTML renders the HTML email body.
func (t *Templates) RenderHTML(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlain renders the plain text email body.
func (t *Templates) RenderPlain(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.plain.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// directionColor returns the accent color for the alert direction.
func directionColor(direction models.Direction) string {
	switch direction {
	case models.DirectionAbove:
		return "#388e3c" // green
	case models.DirectionBelow:
		return "#d32f2f" // red
	default:
		return "#757575" // gray
	}
}

// NotificationToTemplateData converts a notification to template data.
func NotificationToTemplateData(n *Notification) TemplateData {
	name := n.RecipientName
	if name == "" {
		name = "there"
	}

	data := TemplateData{
		RecipientName: name,
		Symbol:        n.Symbol,
		Direction:     string(n.Direction),
		TargetPrice:   n.TargetPrice.StringFixed(2),
		ObservedPrice: n.ObservedPrice.StringFixed(2),
		FiredAt:       n.FiredAt.Format("2006-01-02 15:04:05 MST"),
		AccentColor:   directionColor(n.Direction),
	}

	if n.Kind == models.KindDuration {
		data.Sustained = (time.Duration(n.SustainedSeconds) * time.Second).String()
	}

	return data
}
