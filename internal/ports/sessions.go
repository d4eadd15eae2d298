package ports

import (
	"context"
	"errors"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps per-user sessions. Injected into the dispatcher and
// monitor instead of ambient global state.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*domain.Session, error)
	Set(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, userID int64) error
}
