package sarathi

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

// Marker strings captured from real site responses. The classification
// contract is three-way (available / unavailable / error); anything that
// matches nothing is surfaced as an unexpected response by the caller.

var captchaErrorMarkers = []string{
	"invalid captcha",
	"captcha code is incorrect",
	"captcha mismatch",
	"please enter correct captcha",
}

var credentialErrorMarkers = []string{
	"invalid application number",
	"invalid dob",
	"error in login",
	"login failed",
}

var loginSuccessMarkers = []string{
	"dl test appointment",
	"appointment details",
	"slot booking",
}

var noSlotsRe = regexp.MustCompile(`(?i)slots are not available for the next (\d+) days`)

// pageText flattens the HTML to visible text for marker matching. Falls
// back to the raw body when the document does not parse.
func pageText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return strings.ToLower(string(body))
	}
	return strings.ToLower(doc.Text())
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func classifyLogin(body []byte, applNo, finalURL string) ports.LoginOutcome {
	text := pageText(body)

	if containsAny(text, captchaErrorMarkers) {
		return ports.LoginRejectedCaptcha
	}
	if containsAny(text, credentialErrorMarkers) {
		return ports.LoginRejectedCredentials
	}
	if containsAny(text, loginSuccessMarkers) || (applNo != "" && strings.Contains(text, strings.ToLower(applNo))) {
		return ports.LoginOK
	}
	// Redirected away from the login form means the site let us in.
	if finalURL != "" && !strings.Contains(finalURL, "dlslotbook.do") && !strings.Contains(finalURL, "dldetsubmit.do") {
		return ports.LoginOK
	}
	// Still on the login page with no recognized marker: the site drops
	// silently rejected captchas back onto the form.
	return ports.LoginRejectedCaptcha
}

func classifyAvailability(body []byte) ports.Availability {
	text := pageText(body)

	if m := noSlotsRe.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		return ports.Availability{Known: true, Available: false, DaysUntil: days}
	}
	if strings.Contains(text, "slots are not available") {
		return ports.Availability{Known: true, Available: false}
	}
	if strings.Contains(text, "available") && strings.Contains(text, "slot") {
		return ports.Availability{Known: true, Available: true}
	}
	return ports.Availability{}
}

func classifyBooking(body []byte) (ports.BookingOutcome, bool) {
	text := pageText(body)

	if m := noSlotsRe.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		return ports.BookingOutcome{NoSlots: true, Message: "no slots available", DaysUntil: days}, true
	}
	if strings.Contains(text, "slots are not available") {
		return ports.BookingOutcome{NoSlots: true, Message: "no slots available"}, true
	}
	if strings.Contains(text, "success") || strings.Contains(text, "booked") {
		return ports.BookingOutcome{Booked: true, Message: "slot booked"}, true
	}
	if strings.Contains(text, "error") || strings.Contains(text, "invalid") {
		return ports.BookingOutcome{Message: "booking rejected by site"}, true
	}
	if strings.Contains(text, "dl test appointment") || strings.Contains(text, "appointment") {
		return ports.BookingOutcome{Booked: true, Message: "booking page confirmed"}, true
	}
	return ports.BookingOutcome{}, false
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
