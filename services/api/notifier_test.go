package api

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"riz/pkg/render"
)

type capturingPublisher struct {
	subject string
	payload any
	err     error
}

func (p *capturingPublisher) Publish(_ context.Context, subject string, v any) error {
	p.subject, p.payload = subject, v
	return p.err
}

func TestTemplateNotifierPublishesNotice(t *testing.T) {
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	pub := &capturingPublisher{}
	n := &templateNotifier{renderer: renderer, log: zerolog.Nop(), events: pub}

	notice := ResetNotice{
		Email:      "maria@example.com",
		Name:       "Maria",
		Identifier: "maria",
		Link:       "https://riz.example/reset-password?token=abc",
		ExpiresAt:  time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
	}
	if err := n.SendPasswordReset(t.Context(), notice); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}

	if pub.subject != noticeTopic {
		t.Fatalf("subject = %q, want %q", pub.subject, noticeTopic)
	}
	msg, ok := pub.payload.(noticeMessage)
	if !ok {
		t.Fatalf("payload = %T", pub.payload)
	}
	if msg.To != notice.Email || msg.Subject != "Password reset for maria" || !strings.Contains(msg.Body, notice.Link) {
		t.Fatalf("unexpected message %+v", msg)
	}

	pub.err = errors.New("nats: no responders")
	if err := n.SendPasswordReset(t.Context(), notice); err == nil {
		t.Fatal("SendPasswordReset() expected publish error")
	}
}

func TestTemplateNotifierWithoutBus(t *testing.T) {
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	n := &templateNotifier{renderer: renderer, log: zerolog.Nop()}

	if err := n.SendPasswordReset(t.Context(), ResetNotice{Name: "Maria", Identifier: "maria"}); err == nil {
		t.Fatal("SendPasswordReset() expected error without link")
	}
	if err := n.SendPasswordReset(t.Context(), ResetNotice{Name: "Maria", Identifier: "maria", Link: "https://riz.example/r"}); err != nil {
		t.Fatalf("SendPasswordReset() error = %v", err)
	}
}
