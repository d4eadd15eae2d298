package useCases

import (
	"context"
	"sync"
	"time"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []string
	photos int
	msgs   chan string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{msgs: make(chan string, 32)}
}

func (f *fakeMessenger) Listen() (<-chan domain.Message, error) {
	return make(chan domain.Message), nil
}

func (f *fakeMessenger) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	f.sent = append(f.sent, text)
	f.mu.Unlock()
	f.msgs <- text
	return nil
}

func (f *fakeMessenger) SendPhoto(chatID int64, caption string, image []byte) error {
	f.mu.Lock()
	f.photos++
	f.mu.Unlock()
	return nil
}

func (f *fakeMessenger) Close() {}

func (f *fakeMessenger) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeMessenger) waitMessage(timeout time.Duration) (string, bool) {
	select {
	case m := <-f.msgs:
		return m, true
	case <-time.After(timeout):
		return "", false
	}
}

type fakeAttempt struct {
	mu            sync.Mutex
	fetchCalls    int
	fetchErr      error
	loginOutcomes []ports.LoginOutcome
	loginCalls    int
	avail         ports.Availability
	availErr      error
	booking       ports.BookingOutcome
	bookErr       error
	bookCalls     int
}

func (f *fakeAttempt) FetchCaptcha(context.Context) (*domain.CaptchaChallenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &domain.CaptchaChallenge{
		Image:    []byte("img"),
		MIME:     "image/jpeg",
		IssuedAt: time.Now(),
		ValidFor: time.Minute,
	}, nil
}

func (f *fakeAttempt) SubmitLogin(context.Context, string) (ports.LoginOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	outcome := ports.LoginOK
	if f.loginCalls < len(f.loginOutcomes) {
		outcome = f.loginOutcomes[f.loginCalls]
	}
	f.loginCalls++
	return outcome, nil
}

func (f *fakeAttempt) CheckAvailability(context.Context) (ports.Availability, error) {
	return f.avail, f.availErr
}

func (f *fakeAttempt) BookSlot(context.Context) (ports.BookingOutcome, error) {
	f.mu.Lock()
	f.bookCalls++
	f.mu.Unlock()
	return f.booking, f.bookErr
}

type fakeGateway struct {
	attempt *fakeAttempt
	err     error
}

func (f *fakeGateway) NewAttempt(context.Context, string, time.Time) (ports.Attempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.attempt, nil
}

type fakeSolver struct {
	mu      sync.Mutex
	answers []string
	err     error
	calls   int
}

func (f *fakeSolver) Solve(context.Context, *domain.Session, *domain.CaptchaChallenge) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "AB12", nil
	}
	a := f.answers[0]
	if len(f.answers) > 1 {
		f.answers = f.answers[1:]
	}
	return a, nil
}

type fakeTicker struct {
	mu      sync.Mutex
	reports []TickReport
	calls   int
}

func (f *fakeTicker) RunTick(context.Context, *domain.Session) TickReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.reports) == 0 {
		return TickReport{Result: domain.ResultUnavailable}
	}
	r := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return r
}

func (f *fakeTicker) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
