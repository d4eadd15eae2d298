package ports

import (
	"context"
	"time"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

type LoginOutcome int

const (
	// LoginOK: the site accepted credentials and captcha.
	LoginOK LoginOutcome = iota
	// LoginRejectedCaptcha: wrong captcha answer, a new challenge is needed.
	LoginRejectedCaptcha
	// LoginRejectedCredentials: the site rejected the application number or DOB.
	LoginRejectedCredentials
)

// Availability is the site's answer to "are slots open right now".
// Known is false when the response matched no pattern.
type Availability struct {
	Known     bool
	Available bool
	// DaysUntil is the "no slots for the next N days" figure when present.
	DaysUntil int
}

type BookingOutcome struct {
	Booked bool
	// NoSlots means availability evaporated by the time booking ran.
	NoSlots   bool
	Message   string
	DaysUntil int
}

// Attempt is one fresh authenticated site session. Challenge fetch,
// login, availability and booking all share its cookies.
type Attempt interface {
	FetchCaptcha(ctx context.Context) (*domain.CaptchaChallenge, error)
	SubmitLogin(ctx context.Context, captcha string) (LoginOutcome, error)
	CheckAvailability(ctx context.Context) (Availability, error)
	BookSlot(ctx context.Context) (BookingOutcome, error)
}

// BookingGateway opens attempts against the booking site. NewAttempt
// performs the state selection and navigation preamble.
type BookingGateway interface {
	NewAttempt(ctx context.Context, applicationNo string, dob time.Time) (Attempt, error)
}
