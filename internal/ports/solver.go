package ports

import (
	"context"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

// CaptchaSolver turns a captcha image into text, either by asking the
// user or by calling the AI API.
type CaptchaSolver interface {
	Solve(ctx context.Context, sess *domain.Session, ch *domain.CaptchaChallenge) (string, error)
}
