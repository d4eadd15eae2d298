package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

// ManualSolver forwards the captcha image to the user and suspends until
// their next text reply, bounded by the configured timeout.
type ManualSolver struct {
	msgr    ports.Messenger
	pending *PendingReplies
	timeout time.Duration
	log     *slog.Logger
}

func NewManualSolver(msgr ports.Messenger, pending *PendingReplies, timeout time.Duration, log *slog.Logger) *ManualSolver {
	return &ManualSolver{msgr: msgr, pending: pending, timeout: timeout, log: log}
}

func (s *ManualSolver) Solve(ctx context.Context, sess *domain.Session, ch *domain.CaptchaChallenge) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.pending.Await(waitCtx, sess.UserID, func() error {
		// Private chat ids equal user ids, so the session key addresses the chat.
		if err := s.msgr.SendPhoto(sess.UserID, "Please reply with the captcha text:", ch.Image); err != nil {
			return fmt.Errorf("send captcha photo: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.Warn("captcha reply timed out", "user_id", sess.UserID, "timeout", s.timeout)
			return "", domain.ErrCaptchaTimeout
		}
		return "", err
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		return "", domain.ErrCaptchaUnsolved
	}
	return answer, nil
}
