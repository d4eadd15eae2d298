package useCases

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// PendingReplies is the registry of users whose next plain text message
// should resume a suspended flow (captcha entry, interactive prompts)
// instead of going through command parsing. Entries expire with the
// registry TTL so stale waiters never swallow later messages.
type PendingReplies struct {
	cache *ttlcache.Cache[int64, chan string]
}

func NewPendingReplies(ttl time.Duration) *PendingReplies {
	cache := ttlcache.New[int64, chan string](
		ttlcache.WithTTL[int64, chan string](ttl),
		ttlcache.WithDisableTouchOnHit[int64, chan string](),
	)
	go cache.Start()
	return &PendingReplies{cache: cache}
}

// Await registers the user, runs announce (the question or captcha photo),
// then blocks until their next message arrives or the context ends.
// Registering before announcing means even an instant reply is caught.
// Re-registering replaces any previous waiter.
func (p *PendingReplies) Await(ctx context.Context, userID int64, announce func() error) (string, error) {
	ch := make(chan string, 1)
	p.cache.Set(userID, ch, ttlcache.DefaultTTL)
	// Clean up only our own registration; a newer waiter may have
	// replaced it while this one was timing out.
	defer func() {
		if item := p.cache.Get(userID); item != nil && item.Value() == ch {
			p.cache.Delete(userID)
		}
	}()

	if announce != nil {
		if err := announce(); err != nil {
			return "", err
		}
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case text := <-ch:
		return text, nil
	}
}

// Deliver routes a message to a waiting flow. Returns false when nobody
// is waiting for this user.
func (p *PendingReplies) Deliver(userID int64, text string) bool {
	item := p.cache.Get(userID)
	if item == nil {
		return false
	}
	p.cache.Delete(userID)
	select {
	case item.Value() <- text:
		return true
	default:
		return false
	}
}

func (p *PendingReplies) Stop() {
	p.cache.Stop()
}
