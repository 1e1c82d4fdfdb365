package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
)

type capturedSend struct {
	addr string
	from string
	to   []string
	msg  []byte
}

func TestSendWelcome(t *testing.T) {
	var captured capturedSend
	mailer, err := New(Config{
		Addr: "smtp.example.com:587",
		From: "no-reply@loadtracker.app",
	}, func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		captured = capturedSend{addr: addr, from: from, to: to, msg: msg}
		return nil
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := mailer.SendWelcome(context.Background(), "dana@example.com", "Dana <Dispatcher>"); err != nil {
		t.Fatalf("SendWelcome: %v", err)
	}
	if captured.addr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr: %s", captured.addr)
	}
	if len(captured.to) != 1 || captured.to[0] != "dana@example.com" {
		t.Fatalf("unexpected recipients: %v", captured.to)
	}
	body := string(captured.msg)
	if !strings.Contains(body, "Subject: Welcome") {
		t.Fatalf("missing subject: %s", body)
	}
	// HTML-escaped name: template output must not carry raw angle brackets.
	if !strings.Contains(body, "Dana &lt;Dispatcher&gt;") {
		t.Fatalf("name not escaped: %s", body)
	}
}

func TestSendPasswordResetCarriesLink(t *testing.T) {
	var captured capturedSend
	mailer, err := New(Config{Addr: "smtp.example.com:25", From: "no-reply@loadtracker.app"},
		func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
			captured = capturedSend{addr: addr, from: from, to: to, msg: msg}
			return nil
		})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	link := "https://tracker.example.com/reset-password?token=abc"
	if err := mailer.SendPasswordReset(context.Background(), "dana@example.com", link); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if !strings.Contains(string(captured.msg), link) {
		t.Fatalf("reset link missing from body: %s", captured.msg)
	}
}

func TestSendFailureSurfaces(t *testing.T) {
	mailer, err := New(Config{Addr: "smtp.example.com:25", From: "no-reply@loadtracker.app"},
		func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := mailer.SendWelcome(context.Background(), "dana@example.com", "Dana"); err == nil {
		t.Fatal("expected error from failing transport")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{From: "x@y"}, nil); err == nil {
		t.Fatal("expected error for missing addr")
	}
	if _, err := New(Config{Addr: "smtp:25"}, nil); err == nil {
		t.Fatal("expected error for missing from")
	}
}
