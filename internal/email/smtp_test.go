package email

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage(t *testing.T) {
	now := time.Date(2025, 4, 5, 6, 7, 8, 0, time.UTC)
	out := buildMessage(Message{
		FromName:  "Career Pointer",
		FromEmail: "noreply@example.com",
		ToEmail:   "user@example.com",
		Subject:   "Hello",
		TextBody:  "line one\nline two",
	}, now)

	for _, want := range []string{
		"From: \"Career Pointer\" <noreply@example.com>\r\n",
		"To: user@example.com\r\n",
		"Subject: Hello\r\n",
		"Date: Sat, 05 Apr 2025 06:07:08 +0000\r\n",
		"\r\n\r\nline one\r\nline two",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("message missing %q:\n%s", want, out)
		}
	}
}

func TestSendSMTP_RejectsHeaderInjection(t *testing.T) {
	err := SendSMTP(context.Background(), SMTPSettings{Host: "127.0.0.1", Port: 1}, Message{
		FromEmail: "noreply@example.com",
		ToEmail:   "victim@example.com\r\nBcc: other@example.com",
		Subject:   "x",
	})
	if err == nil || !strings.Contains(err.Error(), "line break") {
		t.Fatalf("expected header injection to be rejected, got %v", err)
	}
}
