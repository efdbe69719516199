// Package email sends transactional email through SendGrid or SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/url"
)

// ErrNotConfigured is returned when no transport was set up.
var ErrNotConfigured = errors.New("email: no transport configured")

// Config selects the transport. SendGrid wins when its key is set, SMTP is
// used when only a host is set.
type Config struct {
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	FromEmail      string
	FromName       string
	FrontendURL    string
}

// Service renders and sends the application's emails.
type Service struct {
	sender      Sender
	frontendURL string
}

// NewService picks a transport from cfg. With neither SendGrid nor SMTP
// configured the service reports Configured() == false.
func NewService(cfg Config) *Service {
	var sender Sender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = NewSendGridSender(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName)
	case cfg.SMTPHost != "":
		sender = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromEmail, cfg.FromName)
	}

	if sender != nil {
		log.Printf("✅ Email service initialized with %s", sender.Name())
	} else {
		log.Printf("⚠️  Email service not configured (set SENDGRID_API_KEY or SMTP_HOST)")
	}
	return &Service{sender: sender, frontendURL: cfg.FrontendURL}
}

// NewServiceWithSender is used by tests and by callers that build their own transport.
func NewServiceWithSender(sender Sender, frontendURL string) *Service {
	return &Service{sender: sender, frontendURL: frontendURL}
}

// Configured reports whether emails can be sent at all.
func (s *Service) Configured() bool {
	return s != nil && s.sender != nil
}

// Send delivers a prebuilt message.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	return s.sender.Send(ctx, msg)
}

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #1e293b; padding: 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">UCIC</h1>
  </div>
  <div style="padding: 30px; background: #f8fafc;">
    <h2 style="color: #1e293b;">Recupera tu contraseña</h2>
    <p style="color: #64748b;">Hola {{.Name}},</p>
    <p style="color: #64748b;">Recibimos una solicitud para restablecer la contraseña de tu cuenta.</p>
    <p style="color: #64748b;">Haz clic en el siguiente botón para crear una nueva contraseña:</p>
    <div style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background: #1e293b; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; display: inline-block;">Restablecer Contraseña</a>
    </div>
    <p style="color: #64748b; font-size: 14px;">Este enlace expirará en 1 hora.</p>
    <p style="color: #64748b; font-size: 14px;">Si no solicitaste este cambio, puedes ignorar este email.</p>
  </div>
  <div style="padding: 20px; text-align: center; color: #94a3b8; font-size: 12px;">© UCIC. Todos los derechos reservados.</div>
</div>`))

// ResetLink builds the frontend URL carrying a reset token.
func (s *Service) ResetLink(token string) string {
	return fmt.Sprintf("%s/forgot-password?token=%s", s.frontendURL, url.QueryEscape(token))
}

// SendPasswordResetEmail sends the recovery link to a user.
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) error {
	link := s.ResetLink(token)

	var body bytes.Buffer
	if err := resetTemplate.Execute(&body, struct{ Name, Link string }{toName, link}); err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}

	text := fmt.Sprintf("Hola %s,\n\nPara restablecer tu contraseña abre el siguiente enlace:\n\n%s\n\nEste enlace expirará en 1 hora.\n", toName, link)

	return s.Send(ctx, Message{
		To:      toEmail,
		ToName:  toName,
		Subject: "Recupera tu contraseña - UCIC",
		HTML:    body.String(),
		Text:    text,
	})
}

// SendNotification sends a plain notification, preserving line breaks in
// the HTML part.
func (s *Service) SendNotification(ctx context.Context, toEmail, subject, text string) error {
	html := "<pre style=\"font-family: Arial, sans-serif;\">" + template.HTMLEscapeString(text) + "</pre>"
	return s.Send(ctx, Message{To: toEmail, Subject: subject, HTML: html, Text: text})
}
