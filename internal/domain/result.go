package domain

// CheckResult classifies the terminal outcome of one monitoring tick.
type CheckResult int

const (
	ResultUnknown CheckResult = iota
	ResultAvailable
	ResultBooked
	ResultUnavailable
	ResultCaptchaFailed
	ResultNetworkError
)

func (r CheckResult) String() string {
	switch r {
	case ResultAvailable:
		return "available"
	case ResultBooked:
		return "booked"
	case ResultUnavailable:
		return "unavailable"
	case ResultCaptchaFailed:
		return "captcha_failed"
	case ResultNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the result ends monitoring for the user.
func (r CheckResult) Terminal() bool {
	return r == ResultAvailable || r == ResultBooked
}
