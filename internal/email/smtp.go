package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type Message struct {
	FromName  string
	FromEmail string
	ToEmail   string
	Subject   string
	TextBody  string
}

type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSMode is one of "starttls" (default), "tls" or "none".
	TLSMode string
}

// SendSMTP delivers msg as a plain-text mail. ctx bounds the dial and the
// whole conversation with the server.
func SendSMTP(ctx context.Context, settings SMTPSettings, msg Message) error {
	for _, v := range []string{msg.FromName, msg.FromEmail, msg.ToEmail, msg.Subject} {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("smtp: header value contains a line break")
		}
	}

	addr := net.JoinHostPort(settings.Host, fmt.Sprint(settings.Port))
	conn, err := dial(ctx, settings, addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, settings.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	if mode(settings) == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if settings.Username != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write([]byte(buildMessage(msg, time.Now()))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func mode(settings SMTPSettings) string {
	if settings.TLSMode == "" {
		return "starttls"
	}
	return settings.TLSMode
}

func dial(ctx context.Context, settings SMTPSettings, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}
	if mode(settings) == "tls" {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}}
		conn, err := td.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("smtp tls dial: %w", err)
		}
		return conn, nil
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	return conn, nil
}

func buildMessage(msg Message, now time.Time) string {
	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%q <%s>", msg.FromName, msg.FromEmail)
	}
	body := strings.ReplaceAll(msg.TextBody, "\r\n", "\n")
	lines := []string{
		"From: " + from,
		"To: " + msg.ToEmail,
		"Subject: " + msg.Subject,
		"Date: " + now.Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		strings.ReplaceAll(body, "\n", "\r\n"),
	}
	return strings.Join(lines, "\r\n")
}
