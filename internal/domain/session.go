package domain

import "time"

type CaptchaMethod string

const (
	CaptchaManual CaptchaMethod = "manual"
	CaptchaAI     CaptchaMethod = "ai"
)

// DOBLayout is the wire format the booking site expects, e.g. "04-03-1974".
const DOBLayout = "02-01-2006"

const DefaultCheckInterval = 30 * time.Minute

// Session holds the per-user bot state. Lives only in the session store,
// created on the first setup command and mutated by later commands.
type Session struct {
	UserID        int64         `json:"user_id"`
	ApplicationNo string        `json:"application_no"`
	DateOfBirth   time.Time     `json:"date_of_birth"`
	CheckInterval time.Duration `json:"check_interval"`
	CaptchaMethod CaptchaMethod `json:"captcha_method"`
	GeminiKey     string        `json:"gemini_key,omitempty"`
	Monitoring    bool          `json:"monitoring"`
	LastCheckAt   time.Time     `json:"last_check_at"`
	LastResult    CheckResult   `json:"last_result"`
}

// NewSession returns a session with defaults applied; credentials are
// filled in by the setup command, never defaulted.
func NewSession(userID int64) *Session {
	return &Session{
		UserID:        userID,
		CheckInterval: DefaultCheckInterval,
		CaptchaMethod: CaptchaManual,
	}
}

// Configured reports whether the session carries the credentials a
// slot check needs.
func (s *Session) Configured() bool {
	return s != nil && s.ApplicationNo != "" && !s.DateOfBirth.IsZero()
}

func (s *Session) DOB() string {
	return s.DateOfBirth.Format(DOBLayout)
}
