// Package mailer delivers account emails.
package mailer

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pushp314/commit-backend/pkg/logger"
)

type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// LogMailer writes messages to the log instead of sending them. It is the
// default until an SMTP transport is configured.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info().Str("to", to).Str("reset_url", resetURL).Msg("Password reset requested")
	return nil
}

// ResetURL builds the frontend link carrying the raw reset token.
func ResetURL(base, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(base, "/"), url.QueryEscape(token))
}
