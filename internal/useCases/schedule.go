package useCases

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Schedule tracks whether checks are allowed right now. The booking site
// serves nothing useful overnight, so checks auto-pause inside the quiet
// window (India time). Manual /pause and /resume override the window.
type Schedule struct {
	log        *slog.Logger
	loc        *time.Location
	pauseHour  int
	resumeHour int
	enabled    bool
	now        func() time.Time

	mu       sync.Mutex
	paused   bool
	override bool
}

func NewSchedule(enabled bool, pauseHour, resumeHour int, log *slog.Logger) *Schedule {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	s := &Schedule{
		log:        log,
		loc:        loc,
		pauseHour:  pauseHour,
		resumeHour: resumeHour,
		enabled:    enabled,
		now:        time.Now,
	}
	s.apply()
	return s
}

func (s *Schedule) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Pause stops checks until Resume is called, regardless of the clock.
func (s *Schedule) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.override = true
}

// Resume lifts a manual pause and hands control back to the quiet window.
func (s *Schedule) Resume() {
	s.mu.Lock()
	s.paused = false
	s.override = false
	s.mu.Unlock()
	s.apply()
}

// Run re-evaluates the quiet window once a minute.
func (s *Schedule) Run(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.apply()
		}
	}
}

func (s *Schedule) apply() {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override {
		return
	}
	h := s.now().In(s.loc).Hour()
	quiet := s.inQuietWindow(h)
	if quiet != s.paused {
		s.paused = quiet
		s.log.Info("quiet hours schedule", "paused", quiet, "hour", h)
	}
}

func (s *Schedule) inQuietWindow(hour int) bool {
	if s.pauseHour == s.resumeHour {
		return false
	}
	if s.pauseHour > s.resumeHour {
		// Window wraps midnight, e.g. 21:00..07:00.
		return hour >= s.pauseHour || hour < s.resumeHour
	}
	return hour >= s.pauseHour && hour < s.resumeHour
}
