package useCases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

// ticker runs one slot check. Satisfied by Checker; faked in tests.
type ticker interface {
	RunTick(ctx context.Context, sess *domain.Session) TickReport
}

type monitorHandle struct {
	cancel context.CancelFunc
}

// Monitor owns the periodic check loops, at most one per user. Starting
// a loop for a user who already has one cancels the old loop first.
type Monitor struct {
	store  ports.SessionStore
	msgr   ports.Messenger
	ticker ticker
	log    *slog.Logger

	mu      sync.Mutex
	handles map[int64]*monitorHandle
	wg      sync.WaitGroup
}

func NewMonitor(store ports.SessionStore, msgr ports.Messenger, t ticker, log *slog.Logger) *Monitor {
	return &Monitor{
		store:   store,
		msgr:    msgr,
		ticker:  t,
		log:     log,
		handles: make(map[int64]*monitorHandle),
	}
}

// Start launches the loop for a user. restarted reports whether a
// previous loop was replaced.
func (m *Monitor) Start(ctx context.Context, userID int64) (restarted bool, err error) {
	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return false, domain.ErrNotConfigured
	}
	if !sess.Configured() {
		return false, domain.ErrNotConfigured
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handle := &monitorHandle{cancel: cancel}

	m.mu.Lock()
	if prev, ok := m.handles[userID]; ok {
		prev.cancel()
		restarted = true
	}
	m.handles[userID] = handle
	m.mu.Unlock()

	sess.Monitoring = true
	if err := m.store.Set(ctx, sess); err != nil {
		m.log.Error("persist monitoring flag", "user_id", userID, "error", err)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.clear(userID, handle)
		m.loop(loopCtx, userID)
	}()
	return restarted, nil
}

// Stop cancels the user's loop. Returns false when nothing was running.
func (m *Monitor) Stop(ctx context.Context, userID int64) bool {
	m.mu.Lock()
	handle, ok := m.handles[userID]
	if ok {
		handle.cancel()
		delete(m.handles, userID)
	}
	m.mu.Unlock()

	if sess, err := m.store.Get(ctx, userID); err == nil && sess.Monitoring {
		sess.Monitoring = false
		if err := m.store.Set(ctx, sess); err != nil {
			m.log.Error("persist monitoring flag", "user_id", userID, "error", err)
		}
	}
	return ok
}

func (m *Monitor) Active(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[userID]
	return ok
}

// StopAll cancels every loop and waits for the ticks in flight to finish.
func (m *Monitor) StopAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]int64, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Stop(ctx, id)
	}
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context, userID int64) {
	log := m.log.With("user_id", userID)
	log.Info("monitoring started")

	for n := 1; ; n++ {
		// Re-read each round so interval changes apply on the next cycle.
		sess, err := m.store.Get(ctx, userID)
		if err != nil {
			log.Warn("session gone, stopping loop", "error", err)
			return
		}

		report := m.ticker.RunTick(ctx, sess)
		if ctx.Err() != nil {
			// Cancelled mid-tick: drop the report silently.
			return
		}

		sess.LastCheckAt = time.Now()
		sess.LastResult = report.Result
		if report.Result.Terminal() {
			sess.Monitoring = false
		}
		if err := m.store.Set(ctx, sess); err != nil {
			log.Error("persist check result", "error", err)
		}

		msg := fmt.Sprintf("Check #%d: %s", n, report.UserMessage())
		if err := m.msgr.SendMessage(userID, msg); err != nil {
			log.Error("send check report", "error", err)
		}

		if report.Result.Terminal() {
			log.Info("monitoring finished", "result", report.Result.String())
			return
		}

		if !m.waitInterval(ctx, sess.CheckInterval) {
			return
		}
	}
}

func (m *Monitor) waitInterval(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = domain.DefaultCheckInterval
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// clear removes the handle only if it is still ours; a restart may have
// replaced it already.
func (m *Monitor) clear(userID int64, handle *monitorHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handles[userID] == handle {
		delete(m.handles, userID)
	}
}
