package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

// maxCaptchaAttempts bounds captcha submissions within one tick: the
// initial try plus one immediate retry, then give up until the next tick.
const maxCaptchaAttempts = 2

// TickReport is the terminal outcome of one monitoring tick.
type TickReport struct {
	Result  domain.CheckResult
	Days    int
	Message string
}

// UserMessage renders the single chat message a tick owes the user.
func (r TickReport) UserMessage() string {
	switch r.Result {
	case domain.ResultBooked:
		return "🎉 Slot booked! Monitoring stopped."
	case domain.ResultAvailable:
		if r.Message != "" {
			return "🔔 Slots appear to be available: " + r.Message
		}
		return "🔔 Slots appear to be available!"
	case domain.ResultUnavailable:
		if r.Days > 0 {
			return fmt.Sprintf("No slots available for the next %d days.", r.Days)
		}
		return "No slots available."
	case domain.ResultCaptchaFailed:
		if r.Message != "" {
			return "Captcha failed: " + r.Message
		}
		return "Captcha failed."
	case domain.ResultNetworkError:
		return "Temporary failure talking to the booking site, will retry on the next check."
	default:
		return "Check finished with no clear result."
	}
}

// Checker runs one complete slot-check attempt cycle: fresh site session,
// captcha fetch, resolution, login submit, classification.
type Checker struct {
	gateway ports.BookingGateway
	manual  ports.CaptchaSolver
	ai      ports.CaptchaSolver
	log     *slog.Logger
}

func NewChecker(gateway ports.BookingGateway, manual, ai ports.CaptchaSolver, log *slog.Logger) *Checker {
	return &Checker{gateway: gateway, manual: manual, ai: ai, log: log}
}

func (c *Checker) RunTick(ctx context.Context, sess *domain.Session) TickReport {
	log := c.log.With("user_id", sess.UserID, "attempt_id", uuid.NewString())

	att, err := c.gateway.NewAttempt(ctx, sess.ApplicationNo, sess.DateOfBirth)
	if err != nil {
		return c.networkReport(log, "open site session", err)
	}

	var last TickReport
	for attempt := 1; attempt <= maxCaptchaAttempts; attempt++ {
		report, retriable := c.runAttempt(ctx, log.With("captcha_attempt", attempt), att, sess)
		if !retriable {
			return report
		}
		last = report
	}
	log.Info("captcha attempts exhausted for this tick")
	return last
}

// runAttempt performs one captcha round. retriable is true only for
// captcha-class failures that deserve an immediate retry.
func (c *Checker) runAttempt(ctx context.Context, log *slog.Logger, att ports.Attempt, sess *domain.Session) (report TickReport, retriable bool) {
	ch, err := att.FetchCaptcha(ctx)
	if err != nil {
		return c.networkReport(log, "captcha fetch", err), false
	}

	answer, err := c.solver(sess).Solve(ctx, sess, ch)
	if err != nil {
		if errors.Is(err, domain.ErrCaptchaTimeout) || errors.Is(err, domain.ErrCaptchaUnsolved) {
			log.Warn("captcha unresolved", "error", err)
			return TickReport{Result: domain.ResultCaptchaFailed, Message: err.Error()}, true
		}
		if ctx.Err() != nil {
			return TickReport{Result: domain.ResultNetworkError, Message: ctx.Err().Error()}, false
		}
		return c.networkReport(log, "captcha resolve", err), false
	}

	if ch.Expired(time.Now()) {
		log.Warn("captcha expired before submission")
		return TickReport{Result: domain.ResultCaptchaFailed, Message: "captcha expired before submission"}, true
	}

	outcome, err := att.SubmitLogin(ctx, answer)
	if err != nil {
		return c.networkReport(log, "login submit", err), false
	}

	switch outcome {
	case ports.LoginRejectedCaptcha:
		log.Info("site rejected captcha answer")
		return TickReport{Result: domain.ResultCaptchaFailed, Message: "wrong captcha"}, true
	case ports.LoginRejectedCredentials:
		log.Warn("site rejected credentials")
		return TickReport{
			Result:  domain.ResultCaptchaFailed,
			Message: "login rejected, check application number and date of birth",
		}, false
	}

	avail, err := att.CheckAvailability(ctx)
	if err != nil {
		return c.networkReport(log, "availability check", err), false
	}
	if avail.Known && !avail.Available {
		return TickReport{Result: domain.ResultUnavailable, Days: avail.DaysUntil}, false
	}

	// Available, or unclear: the booking response gives the definitive word.
	booking, err := att.BookSlot(ctx)
	if err != nil {
		return c.networkReport(log, "booking", err), false
	}
	if booking.Booked {
		log.Info("slot booked", "message", booking.Message)
		return TickReport{Result: domain.ResultBooked, Message: booking.Message}, false
	}
	if booking.NoSlots {
		return TickReport{Result: domain.ResultUnavailable, Days: booking.DaysUntil}, false
	}
	return TickReport{Result: domain.ResultAvailable, Message: booking.Message}, false
}

func (c *Checker) solver(sess *domain.Session) ports.CaptchaSolver {
	if sess.CaptchaMethod == domain.CaptchaAI {
		return c.ai
	}
	return c.manual
}

func (c *Checker) networkReport(log *slog.Logger, op string, err error) TickReport {
	var unexpected *domain.UnexpectedResponseError
	if errors.As(err, &unexpected) {
		log.Error("unexpected site response", "op", op, "snippet", unexpected.Snippet)
	} else {
		log.Error("network failure", "op", op, "error", err)
	}
	return TickReport{Result: domain.ResultNetworkError, Message: err.Error()}
}
