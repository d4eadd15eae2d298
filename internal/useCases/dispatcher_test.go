package useCases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larriantoniy/dl_slot_bot/internal/adapters/store"
	"github.com/larriantoniy/dl_slot_bot/internal/config"
	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

type botFixture struct {
	bot  *Bot
	st   *store.Memory
	msgr *fakeMessenger
	tick *fakeTicker
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	cfg := &config.AppConfig{
		Env:           config.EnvDev,
		CheckInterval: time.Hour,
	}
	st := store.NewMemory()
	msgr := newFakeMessenger()
	tick := &fakeTicker{}
	log := testLogger()
	pending := NewPendingReplies(time.Minute)
	t.Cleanup(pending.Stop)
	sched := NewSchedule(false, 21, 7, log)
	monitor := NewMonitor(st, msgr, tick, log)
	t.Cleanup(func() { monitor.StopAll(context.Background()) })

	return &botFixture{
		bot:  NewBot(cfg, st, msgr, monitor, tick, pending, sched, log),
		st:   st,
		msgr: msgr,
		tick: tick,
	}
}

func (f *botFixture) send(text string) {
	f.bot.handle(context.Background(), domain.Message{ChatID: 42, UserID: 42, Text: text})
}

func (f *botFixture) lastReply(t *testing.T) string {
	t.Helper()
	msg, ok := f.msgr.waitMessage(2 * time.Second)
	require.True(t, ok, "expected a reply")
	return msg
}

func TestBotMyID(t *testing.T) {
	f := newBotFixture(t)
	f.send("/myid")
	assert.Contains(t, f.lastReply(t), "42")
}

func TestBotHelp(t *testing.T) {
	f := newBotFixture(t)
	f.send("/help")
	assert.Contains(t, f.lastReply(t), "/setup")

	f.send("/start")
	assert.Contains(t, f.lastReply(t), "/monitor")
}

func TestBotUnknownCommand(t *testing.T) {
	f := newBotFixture(t)
	f.send("/frobnicate")
	assert.Contains(t, f.lastReply(t), "Unknown command")
}

func TestBotCommandWithBotSuffix(t *testing.T) {
	f := newBotFixture(t)
	f.send("/myid@dl_slot_bot")
	assert.Contains(t, f.lastReply(t), "42")
}

func TestBotSetupWithArgs(t *testing.T) {
	f := newBotFixture(t)
	f.send("/setup 1234567/21 04-03-1990")
	assert.Contains(t, f.lastReply(t), "Saved")

	sess, err := f.st.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "1234567/21", sess.ApplicationNo)
	assert.Equal(t, "04-03-1990", sess.DOB())
	assert.Equal(t, time.Hour, sess.CheckInterval)
}

func TestBotSetupRejectsBadDate(t *testing.T) {
	f := newBotFixture(t)
	f.send("/setup 1234567/21 1990-03-04")
	assert.Contains(t, f.lastReply(t), "dd-mm-yyyy")

	_, err := f.st.Get(context.Background(), 42)
	assert.Error(t, err)
}

func TestBotInteractiveSetup(t *testing.T) {
	f := newBotFixture(t)
	f.send("/setup")
	assert.Contains(t, f.lastReply(t), "application number")

	f.send("1234567/21")
	assert.Contains(t, f.lastReply(t), "date of birth")

	f.send("04-03-1990")
	assert.Contains(t, f.lastReply(t), "Saved")

	sess, err := f.st.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, sess.Configured())
}

func TestBotInteractiveInterval(t *testing.T) {
	f := newBotFixture(t)
	f.send("/interval")
	assert.Contains(t, f.lastReply(t), "minutes")

	f.send("45")
	assert.Contains(t, f.lastReply(t), "45 minutes")

	sess, err := f.st.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, sess.CheckInterval)
}

func TestBotPlainTextWithoutWaiter(t *testing.T) {
	f := newBotFixture(t)
	f.send("hello there")
	assert.Contains(t, f.lastReply(t), "/help")
}

func TestBotCheckUnconfigured(t *testing.T) {
	f := newBotFixture(t)
	f.send("/check")
	assert.Contains(t, f.lastReply(t), "/setup")
}

func TestBotCheckReportsResult(t *testing.T) {
	f := newBotFixture(t)
	f.tick.reports = []TickReport{{Result: domain.ResultUnavailable, Days: 6}}
	f.send("/setup 1234567/21 04-03-1990")
	f.lastReply(t)

	f.send("/check")
	assert.Contains(t, f.lastReply(t), "6 days")

	sess, err := f.st.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.ResultUnavailable, sess.LastResult)
	assert.False(t, sess.LastCheckAt.IsZero())

	// Exactly one message per check.
	_, more := f.msgr.waitMessage(100 * time.Millisecond)
	assert.False(t, more)
}

func TestBotCheckRefusedWhenPaused(t *testing.T) {
	f := newBotFixture(t)
	f.send("/setup 1234567/21 04-03-1990")
	f.lastReply(t)

	f.send("/pause")
	assert.Contains(t, f.lastReply(t), "Paused")

	f.send("/check")
	assert.Contains(t, f.lastReply(t), "paused")

	f.send("/resume")
	assert.Contains(t, f.lastReply(t), "Resumed")
}

func TestBotMonitorLifecycle(t *testing.T) {
	f := newBotFixture(t)
	f.send("/monitor")
	assert.Contains(t, f.lastReply(t), "/setup")

	f.send("/setup 1234567/21 04-03-1990")
	f.lastReply(t)

	// The handler ack and the loop's first check report race each other,
	// so assert on the pair.
	f.send("/monitor")
	both := f.lastReply(t) + "\n" + f.lastReply(t)
	assert.Contains(t, both, "Monitoring started")
	assert.Contains(t, both, "Check #1")

	f.send("/monitor")
	both = f.lastReply(t) + "\n" + f.lastReply(t)
	assert.Contains(t, both, "restarted")
	assert.Contains(t, both, "Check #1")

	f.send("/stop")
	assert.Contains(t, f.lastReply(t), "stopped")

	f.send("/stop")
	assert.Contains(t, f.lastReply(t), "not running")
}

func TestBotInterval(t *testing.T) {
	f := newBotFixture(t)
	f.send("/interval 15")
	assert.Contains(t, f.lastReply(t), "15 minutes")

	sess, err := f.st.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, sess.CheckInterval)

	f.send("/interval 0")
	assert.Contains(t, f.lastReply(t), "1..1440")

	f.send("/interval soon")
	assert.Contains(t, f.lastReply(t), "1..1440")
}

func TestBotCaptchaMethod(t *testing.T) {
	f := newBotFixture(t)
	f.send("/captcha_method ai")
	assert.Contains(t, f.lastReply(t), "no Gemini key")

	f.send("/set_gemini_key AIzaSyTestKey12345")
	assert.Contains(t, f.lastReply(t), "AIzaSyTe...")

	f.send("/captcha_method manual")
	assert.Contains(t, f.lastReply(t), "manual")

	f.send("/captcha_method telepathy")
	assert.Contains(t, f.lastReply(t), "manual or ai")
}

func TestBotStatus(t *testing.T) {
	f := newBotFixture(t)
	f.send("/status")
	assert.Contains(t, f.lastReply(t), "/setup")

	f.send("/setup 1234567/21 04-03-1990")
	f.lastReply(t)

	f.send("/status")
	status := f.lastReply(t)
	assert.Contains(t, status, "1234567/21")
	assert.Contains(t, status, "04-03-1990")
	assert.Contains(t, status, "Monitoring: false")
}

func TestBotUnauthorized(t *testing.T) {
	f := newBotFixture(t)
	f.bot.cfg.AuthorizedUsers = []int64{7}

	f.send("/myid")
	assert.Contains(t, f.lastReply(t), "not authorized")

	// Plain text from unlisted users is dropped without a reply.
	f.send("hello there")
	_, got := f.msgr.waitMessage(100 * time.Millisecond)
	assert.False(t, got)
}

func TestBotStatusSurvivesShortGeminiKey(t *testing.T) {
	f := newBotFixture(t)

	// Keys arrive unvalidated via the environment seed, so even a
	// one-character key must render without a panic.
	sess := testSession()
	sess.GeminiKey = "x"
	require.NoError(t, f.st.Set(context.Background(), sess))

	f.send("/status")
	status := f.lastReply(t)
	assert.Contains(t, status, "Gemini key: ...")
	assert.NotContains(t, status, "x...")
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "...", maskKey("x"))
	assert.Equal(t, "ab...", maskKey("abcdef"))
	assert.Equal(t, "AIzaSyTe...2345", maskKey("AIzaSyTestKey12345"))
}
