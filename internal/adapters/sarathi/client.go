// Package sarathi talks to the Sarathi booking site over plain HTTP,
// mimicking the browser flow captured from the real application.
package sarathi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

const (
	pathStateSelection = "/sarathiservice/stateSelection.do"
	pathStateSelect    = "/sarathiservice/stateSelectBean.do"
	pathAppointments   = "/sarathiservice/appointment.do"
	pathSlotBooking    = "/slots/dlslotbook.do"
	pathCaptchaImage   = "/slots/jsp/common/captchaimage.jsp"
	pathLoginSubmit    = "/slots/dldetsubmit.do"
	pathProceedBooking = "/slots/proceeddlapmnt.do"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

// A captcha is only good for the site session it was issued on, and the
// session itself goes stale quickly.
const captchaValidity = 5 * time.Minute

type Gateway struct {
	baseURL   string
	stateCode string
	timeout   time.Duration
	log       *slog.Logger
}

func NewGateway(baseURL, stateCode string, timeout time.Duration, log *slog.Logger) *Gateway {
	return &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		stateCode: stateCode,
		timeout:   timeout,
		log:       log,
	}
}

// NewAttempt opens a fresh cookie session and walks the state selection
// and navigation preamble so the captcha endpoint is armed.
func (g *Gateway) NewAttempt(ctx context.Context, applicationNo string, dob time.Time) (ports.Attempt, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	httpc := resty.New().
		SetBaseURL(g.baseURL).
		SetCookieJar(jar).
		SetTimeout(g.timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", browserUA).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	a := &attempt{
		http:   httpc,
		base:   g.baseURL,
		applNo: applicationNo,
		dob:    dob.Format(domain.DOBLayout),
		log:    g.log,
	}
	if err := a.openSite(ctx, g.stateCode); err != nil {
		return nil, err
	}
	return a, nil
}

type attempt struct {
	http   *resty.Client
	base   string
	applNo string
	dob    string
	log    *slog.Logger
}

func (a *attempt) openSite(ctx context.Context, stateCode string) error {
	if err := a.get(ctx, "state selection", pathStateSelection); err != nil {
		return err
	}
	res, err := a.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"stName": stateCode}).
		Post(pathStateSelect)
	if err != nil {
		return &domain.NetworkError{Op: "state select", Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return &domain.NetworkError{Op: "state select", Err: statusError(res.StatusCode())}
	}
	if err := a.get(ctx, "appointments page", pathAppointments); err != nil {
		return err
	}
	return a.get(ctx, "slot booking page", pathSlotBooking)
}

func (a *attempt) get(ctx context.Context, op, path string) error {
	res, err := a.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return &domain.NetworkError{Op: op, Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return &domain.NetworkError{Op: op, Err: statusError(res.StatusCode())}
	}
	return nil
}

func (a *attempt) FetchCaptcha(ctx context.Context) (*domain.CaptchaChallenge, error) {
	res, err := a.http.R().
		SetContext(ctx).
		SetHeader("Referer", a.base+pathSlotBooking).
		SetHeader("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8").
		SetHeader("Cache-Control", "no-cache").
		Get(pathCaptchaImage)
	if err != nil {
		return nil, &domain.NetworkError{Op: "captcha fetch", Err: err}
	}
	ct := res.Header().Get("Content-Type")
	if res.StatusCode() != http.StatusOK || !strings.HasPrefix(ct, "image/") {
		return nil, &domain.UnexpectedResponseError{Op: "captcha fetch", Snippet: snippet(res.Body())}
	}
	return &domain.CaptchaChallenge{
		Image:    res.Body(),
		MIME:     ct,
		IssuedAt: time.Now(),
		ValidFor: captchaValidity,
	}, nil
}

func (a *attempt) SubmitLogin(ctx context.Context, captcha string) (ports.LoginOutcome, error) {
	// Refresh the booking page first; the site invalidates stale forms.
	if err := a.get(ctx, "login refresh", pathSlotBooking); err != nil {
		return 0, err
	}

	res, err := a.http.R().
		SetContext(ctx).
		SetHeader("Referer", a.base+pathSlotBooking).
		SetHeader("Origin", a.base).
		SetHeader("Cache-Control", "no-cache").
		SetFormData(map[string]string{
			"subtype":    "1", // 1 = login by application number
			"applno":     a.applNo,
			"llno":       "",
			"dob":        a.dob,
			"uName":      "",
			"hexUsrid":   "",
			"captcha":    captcha,
			"+++SAVE+++": "++SUBMIT++",
		}).
		Post(pathLoginSubmit)
	if err != nil {
		return 0, &domain.NetworkError{Op: "login submit", Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return 0, &domain.NetworkError{Op: "login submit", Err: statusError(res.StatusCode())}
	}

	finalURL := ""
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalURL = res.RawResponse.Request.URL.String()
	}
	outcome := classifyLogin(res.Body(), a.applNo, finalURL)
	a.log.Debug("login classified", "appl_no", a.applNo, "outcome", int(outcome), "final_url", finalURL)
	return outcome, nil
}

func (a *attempt) CheckAvailability(ctx context.Context) (ports.Availability, error) {
	res, err := a.http.R().SetContext(ctx).Get(pathLoginSubmit)
	if err != nil {
		return ports.Availability{}, &domain.NetworkError{Op: "availability check", Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return ports.Availability{}, &domain.NetworkError{Op: "availability check", Err: statusError(res.StatusCode())}
	}
	avail := classifyAvailability(res.Body())
	if !avail.Known {
		a.log.Debug("availability unclear", "snippet", snippet(res.Body()))
	}
	return avail, nil
}

func (a *attempt) BookSlot(ctx context.Context) (ports.BookingOutcome, error) {
	res, err := a.http.R().
		SetContext(ctx).
		SetHeader("Referer", a.base+pathLoginSubmit).
		SetHeader("Origin", a.base).
		SetHeader("Cache-Control", "no-cache").
		SetFormData(map[string]string{
			"iscov":                  "2", // MCWOG class of vehicle
			"__checkbox_iscov":       "2",
			"covcd":                  "2,",
			"trkcd":                  "",
			"method:proceedBookslot": "  PROCEED TO BOOK  ",
		}).
		Post(pathProceedBooking)
	if err != nil {
		return ports.BookingOutcome{}, &domain.NetworkError{Op: "booking", Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return ports.BookingOutcome{}, &domain.NetworkError{Op: "booking", Err: statusError(res.StatusCode())}
	}

	outcome, ok := classifyBooking(res.Body())
	if !ok {
		return ports.BookingOutcome{}, &domain.UnexpectedResponseError{Op: "booking", Snippet: snippet(res.Body())}
	}
	return outcome, nil
}

type statusError int

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", int(e), http.StatusText(int(e)))
}
