// Package gemini resolves captcha images through the Gemini
// generateContent REST API.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

const prompt = `You are an OCR system. Look at this CAPTCHA image carefully.
Read the characters from LEFT TO RIGHT in the exact order they appear.
Preserve the EXACT case of each character. Do NOT rearrange, add or remove
characters. Return ONLY the characters, nothing else - no explanations,
no spaces, no punctuation.`

const defaultBaseURL = "https://generativelanguage.googleapis.com"

var alnumRe = regexp.MustCompile(`[A-Za-z0-9]`)

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type Solver struct {
	http  *resty.Client
	base  string
	model string
	log   *slog.Logger
}

func NewSolver(model string, timeout time.Duration, log *slog.Logger) *Solver {
	return &Solver{
		http:  resty.New().SetTimeout(timeout),
		base:  defaultBaseURL,
		model: model,
		log:   log,
	}
}

// SetBaseURL points the solver at a different endpoint. Used by tests.
func (s *Solver) SetBaseURL(base string) {
	s.base = strings.TrimRight(base, "/")
}

func (s *Solver) Solve(ctx context.Context, sess *domain.Session, ch *domain.CaptchaChallenge) (string, error) {
	if sess.GeminiKey == "" {
		return "", fmt.Errorf("%w: no Gemini API key set", domain.ErrCaptchaUnsolved)
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MIMEType: mimeOrDefault(ch.MIME),
					Data:     base64.StdEncoding.EncodeToString(ch.Image),
				}},
			},
		}},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.base, s.model)

	var gr generateResponse
	err := retry(ctx, 3, time.Second, func() error {
		res, err := s.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader("x-goog-api-key", sess.GeminiKey).
			SetBody(body).
			Post(url)
		if err != nil {
			s.log.Error("gemini request failed", "error", err)
			return err
		}
		if res.StatusCode() != http.StatusOK {
			s.log.Error("gemini returned error", "status", res.StatusCode(), "body", string(res.Body()))
			return fmt.Errorf("status %d: %s", res.StatusCode(), res.Body())
		}
		return json.Unmarshal(res.Body(), &gr)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCaptchaUnsolved, err)
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidates", domain.ErrCaptchaUnsolved)
	}

	answer := cleanAnswer(gr.Candidates[0].Content.Parts[0].Text)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrCaptchaUnsolved)
	}

	s.log.Info("gemini solved captcha", "user_id", sess.UserID, "answer_len", len(answer))
	return answer, nil
}

// cleanAnswer strips everything but alphanumerics, preserving order and
// case; the model occasionally pads the answer with whitespace or prose.
func cleanAnswer(text string) string {
	return strings.Join(alnumRe.FindAllString(text, -1), "")
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return "image/jpeg"
	}
	return mime
}

func retry(ctx context.Context, attempts int, sleep time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}
	}
	return err
}
