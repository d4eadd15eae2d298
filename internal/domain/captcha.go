package domain

import "time"

// CaptchaChallenge is one captcha image tied to the HTTP session it was
// fetched on. It is only valid for a short window and for a single
// submission.
type CaptchaChallenge struct {
	Image    []byte
	MIME     string
	IssuedAt time.Time
	ValidFor time.Duration
}

func (c *CaptchaChallenge) Expired(now time.Time) bool {
	if c.ValidFor <= 0 {
		return false
	}
	return now.After(c.IssuedAt.Add(c.ValidFor))
}
