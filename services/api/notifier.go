package api

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"riz/pkg/render"
)

const noticeTopic = "riz.notify.password_reset"

// ResetNotice is what an account holder receives after asking for a reset.
type ResetNotice struct {
	Email      string
	Name       string
	Identifier string
	Link       string
	ExpiresAt  time.Time
}

// ResetNotifier delivers password-reset notices.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, notice ResetNotice) error
}

// templateNotifier renders the notice and hands it to the log and, when
// configured, to the bus for an out-of-process mailer.
type templateNotifier struct {
	renderer *render.Engine
	log      zerolog.Logger
	events   EventPublisher
}

type noticeMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (n *templateNotifier) SendPasswordReset(ctx context.Context, notice ResetNotice) error {
	msg, err := n.renderer.PasswordReset(render.PasswordResetData{
		Name:       notice.Name,
		Identifier: notice.Identifier,
		Link:       notice.Link,
		ExpiresAt:  notice.ExpiresAt,
	})
	if err != nil {
		return err
	}

	n.log.Info().
		Str("to", notice.Email).
		Str("identifier", notice.Identifier).
		Time("expires_at", notice.ExpiresAt).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("password reset notice")

	if n.events == nil {
		return nil
	}
	if err := n.events.Publish(ctx, noticeTopic, noticeMessage{
		To:      notice.Email,
		Subject: msg.Subject,
		Body:    msg.Body,
	}); err != nil {
		return fmt.Errorf("deliver reset notice: %w", err)
	}
	return nil
}
