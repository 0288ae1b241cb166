package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bahaimran-cloud/INFR3120-Fall25-Project/internal/email"
)

// EmailService delivers password reset links over SMTP.
type EmailService struct {
	Settings  email.SMTPSettings
	FromName  string
	FromEmail string
	// ResetURL turns a raw token into the absolute link put in the mail.
	ResetURL func(token string) string
	// Send defaults to email.SendSMTP.
	Send func(ctx context.Context, settings email.SMTPSettings, msg email.Message) error
}

func (s *EmailService) SendPasswordReset(ctx context.Context, toEmail, rawToken string) error {
	if s.Settings.Host == "" || s.FromEmail == "" {
		return fmt.Errorf("smtp settings not configured")
	}
	if s.ResetURL == nil {
		return fmt.Errorf("reset url builder not configured")
	}
	send := s.Send
	if send == nil {
		send = email.SendSMTP
	}

	body := strings.Join([]string{
		"You requested a password reset for your Career Pointer account.",
		"",
		"Reset your password using this link (valid for one hour):",
		s.ResetURL(rawToken),
		"",
		"If you did not request this, you can ignore this email.",
	}, "\n")

	return send(ctx, s.Settings, email.Message{
		FromName:  s.FromName,
		FromEmail: s.FromEmail,
		ToEmail:   toEmail,
		Subject:   "Reset your Career Pointer password",
		TextBody:  body,
	})
}
