// Package notify delivers registration confirmation messages.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	texttemplate "text/template"
	"time"

	"github.com/Shivanand-hulikatti/bootcamp-checkout/internal/money"
)

//go:embed templates/*
var templatesFS embed.FS

// Confirmation is the data rendered into a payment confirmation email.
type Confirmation struct {
	To          string
	Name        string
	Reference   string
	EventName   string
	StartsAt    time.Time
	EndsAt      time.Time
	Location    string
	AmountCents int64
	Currency    string
}

// Amount renders the paid amount for templates.
func (c Confirmation) Amount() string {
	if c.AmountCents == 0 {
		return "Free"
	}
	return money.Display(c.AmountCents, c.Currency)
}

// Sender delivers confirmation messages.
type Sender interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

var (
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/confirmation.txt"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/confirmation.html"))
)

// Render returns the subject, plain-text and HTML bodies for a confirmation.
func Render(c Confirmation) (subject, text, html string, err error) {
	subject = fmt.Sprintf("You're registered: %s (%s)", c.EventName, c.Reference)

	var tb, hb bytes.Buffer
	if err := textTmpl.Execute(&tb, c); err != nil {
		return "", "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := htmlTmpl.Execute(&hb, c); err != nil {
		return "", "", "", fmt.Errorf("render html body: %w", err)
	}
	return subject, tb.String(), hb.String(), nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when SMTP is not configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendConfirmation(ctx context.Context, c Confirmation) error {
	subject, text, _, err := Render(c)
	if err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "confirmation email (not sent, smtp disabled)",
		"to", c.To, "subject", subject, "body", text)
	return nil
}
