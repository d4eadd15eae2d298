package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/larriantoniy/dl_slot_bot/internal/config"
	"github.com/larriantoniy/dl_slot_bot/internal/domain"
	"github.com/larriantoniy/dl_slot_bot/internal/ports"
)

// promptTimeout bounds each step of an interactive dialog.
const promptTimeout = 2 * time.Minute

const helpText = `Driving licence slot bot. Commands:

/setup <application_no> <dd-mm-yyyy> - save your credentials
/setup - interactive setup
/check - run one slot check now
/monitor - check periodically until a slot is found
/stop - stop periodic checks
/interval <minutes> - change the check interval (1..1440)
/captcha_method <manual|ai> - how captchas get solved
/set_gemini_key <key> - Gemini API key for ai captcha solving
/status - current configuration and monitoring state
/pause - pause all checks
/resume - resume checks
/myid - show your Telegram id`

// Bot routes incoming chat messages: plain text feeds suspended flows,
// slash commands dispatch to handlers.
type Bot struct {
	cfg     *config.AppConfig
	store   ports.SessionStore
	msgr    ports.Messenger
	monitor *Monitor
	checker ticker
	pending *PendingReplies
	sched   *Schedule
	log     *slog.Logger
}

func NewBot(
	cfg *config.AppConfig,
	store ports.SessionStore,
	msgr ports.Messenger,
	monitor *Monitor,
	checker ticker,
	pending *PendingReplies,
	sched *Schedule,
	log *slog.Logger,
) *Bot {
	return &Bot{
		cfg:     cfg,
		store:   store,
		msgr:    msgr,
		monitor: monitor,
		checker: checker,
		pending: pending,
		sched:   sched,
		log:     log,
	}
}

// Run consumes the message stream until the context ends.
func (b *Bot) Run(ctx context.Context) error {
	messages, err := b.msgr.Listen()
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.log.Info("bot is listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return errors.New("message stream closed")
			}
			b.handle(ctx, msg)
		}
	}
}

func (b *Bot) handle(ctx context.Context, msg domain.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if !b.cfg.IsAuthorized(msg.UserID) {
		b.log.Warn("unauthorized user", "user_id", msg.UserID)
		// Only commands get a refusal; plain text from strangers is dropped.
		if strings.HasPrefix(text, "/") {
			b.reply(msg.UserID, "You are not authorized to use this bot.")
		}
		return
	}

	// Plain text resumes a suspended flow (captcha entry, setup dialog).
	if !strings.HasPrefix(text, "/") {
		if b.pending.Deliver(msg.UserID, text) {
			return
		}
		b.reply(msg.UserID, "I did not expect a message right now. Try /help.")
		return
	}

	cmd, args := parseCommand(text)
	log := b.log.With("user_id", msg.UserID, "command", cmd)
	log.Info("command received")

	switch cmd {
	case "start", "help":
		b.reply(msg.UserID, helpText)
	case "myid":
		b.reply(msg.UserID, fmt.Sprintf("Your Telegram id: %d", msg.UserID))
	case "setup":
		b.handleSetup(ctx, msg.UserID, args)
	case "check":
		b.handleCheck(ctx, msg.UserID)
	case "monitor":
		b.handleMonitor(ctx, msg.UserID)
	case "stop":
		b.handleStop(ctx, msg.UserID)
	case "pause":
		b.sched.Pause()
		b.monitor.StopAll(ctx)
		b.reply(msg.UserID, "Paused. All checks stopped until /resume.")
	case "resume":
		b.sched.Resume()
		b.reply(msg.UserID, "Resumed. Use /check or /monitor to continue.")
	case "interval":
		b.handleInterval(ctx, msg.UserID, args)
	case "captcha_method":
		b.handleCaptchaMethod(ctx, msg.UserID, args)
	case "set_gemini_key":
		b.handleGeminiKey(ctx, msg.UserID, args)
	case "status":
		b.handleStatus(ctx, msg.UserID)
	default:
		b.reply(msg.UserID, "Unknown command. Try /help.")
	}
}

// parseCommand splits "/cmd@botname arg1 arg2" into the bare command and
// its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}

func (b *Bot) handleSetup(ctx context.Context, userID int64, args []string) {
	if len(args) == 0 {
		go b.interactiveSetup(ctx, userID)
		return
	}
	if len(args) != 2 {
		b.reply(userID, "Usage: /setup <application_no> <dd-mm-yyyy>")
		return
	}
	b.applySetup(ctx, userID, args[0], args[1])
}

// interactiveSetup walks the user through setup one question at a time.
// Runs in its own goroutine so the dispatcher keeps serving other users.
func (b *Bot) interactiveSetup(ctx context.Context, userID int64) {
	applNo, ok := b.prompt(ctx, userID, "Please send your application number:")
	if !ok {
		return
	}
	dob, ok := b.prompt(ctx, userID, "Please send your date of birth (dd-mm-yyyy):")
	if !ok {
		return
	}
	b.applySetup(ctx, userID, applNo, dob)
}

func (b *Bot) prompt(ctx context.Context, userID int64, question string) (string, bool) {
	waitCtx, cancel := context.WithTimeout(ctx, promptTimeout)
	defer cancel()
	answer, err := b.pending.Await(waitCtx, userID, func() error {
		b.reply(userID, question)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			b.reply(userID, "Timed out waiting for a reply, run the command again.")
		}
		return "", false
	}
	return strings.TrimSpace(answer), true
}

func (b *Bot) applySetup(ctx context.Context, userID int64, applNo, dobText string) {
	dob, err := time.Parse(domain.DOBLayout, dobText)
	if err != nil {
		b.reply(userID, "Date of birth must be dd-mm-yyyy, e.g. 04-03-1990.")
		return
	}

	sess := b.sessionFor(ctx, userID)
	sess.ApplicationNo = strings.ToUpper(strings.TrimSpace(applNo))
	sess.DateOfBirth = dob
	if err := b.store.Set(ctx, sess); err != nil {
		b.log.Error("save session", "user_id", userID, "error", err)
		b.reply(userID, "Could not save your settings, try again.")
		return
	}
	b.reply(userID, fmt.Sprintf(
		"Saved. Application %s, DOB %s. Use /check to test or /monitor to watch for slots.",
		sess.ApplicationNo, sess.DOB(),
	))
}

func (b *Bot) handleCheck(ctx context.Context, userID int64) {
	if b.sched.Paused() {
		b.reply(userID, "Checks are paused right now. Use /resume first.")
		return
	}
	sess, err := b.store.Get(ctx, userID)
	if err != nil || !sess.Configured() {
		b.reply(userID, "Not configured yet. Run /setup first.")
		return
	}

	// One tick, one message: the report is the only reply.
	go func() {
		report := b.checker.RunTick(ctx, sess)
		sess.LastCheckAt = time.Now()
		sess.LastResult = report.Result
		if err := b.store.Set(ctx, sess); err != nil {
			b.log.Error("persist check result", "user_id", userID, "error", err)
		}
		b.reply(userID, report.UserMessage())
	}()
}

func (b *Bot) handleMonitor(ctx context.Context, userID int64) {
	if b.sched.Paused() {
		b.reply(userID, "Checks are paused right now. Use /resume first.")
		return
	}
	restarted, err := b.monitor.Start(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			b.reply(userID, "Not configured yet. Run /setup first.")
			return
		}
		b.log.Error("start monitor", "user_id", userID, "error", err)
		b.reply(userID, "Could not start monitoring, try again.")
		return
	}
	if restarted {
		b.reply(userID, "Monitoring restarted.")
		return
	}
	b.reply(userID, "Monitoring started. I will message you after every check.")
}

func (b *Bot) handleStop(ctx context.Context, userID int64) {
	if b.monitor.Stop(ctx, userID) {
		b.reply(userID, "Monitoring stopped.")
		return
	}
	b.reply(userID, "Monitoring was not running.")
}

// askIfMissing runs apply on the single argument, or prompts for the
// value in a goroutine when the command came without one.
func (b *Bot) askIfMissing(ctx context.Context, userID int64, args []string, question, usage string, apply func(value string)) {
	switch len(args) {
	case 0:
		go func() {
			if value, ok := b.prompt(ctx, userID, question); ok {
				apply(value)
			}
		}()
	case 1:
		apply(args[0])
	default:
		b.reply(userID, usage)
	}
}

func (b *Bot) handleInterval(ctx context.Context, userID int64, args []string) {
	b.askIfMissing(ctx, userID, args,
		"How many minutes between checks? (1..1440)",
		"Usage: /interval <minutes>",
		func(value string) { b.applyInterval(ctx, userID, value) })
}

func (b *Bot) applyInterval(ctx context.Context, userID int64, value string) {
	minutes, err := strconv.Atoi(value)
	if err != nil || minutes < 1 || minutes > 1440 {
		b.reply(userID, "Interval must be a whole number of minutes, 1..1440.")
		return
	}

	sess := b.sessionFor(ctx, userID)
	sess.CheckInterval = time.Duration(minutes) * time.Minute
	if err := b.store.Set(ctx, sess); err != nil {
		b.log.Error("save session", "user_id", userID, "error", err)
		b.reply(userID, "Could not save the interval, try again.")
		return
	}
	note := ""
	if b.monitor.Active(userID) {
		note = " The running monitor picks it up on the next cycle."
	}
	b.reply(userID, fmt.Sprintf("Check interval set to %d minutes.%s", minutes, note))
}

func (b *Bot) handleCaptchaMethod(ctx context.Context, userID int64, args []string) {
	b.askIfMissing(ctx, userID, args,
		"How should captchas be solved, manual or ai?",
		"Usage: /captcha_method <manual|ai>",
		func(value string) { b.applyCaptchaMethod(ctx, userID, value) })
}

func (b *Bot) applyCaptchaMethod(ctx context.Context, userID int64, value string) {
	method := domain.CaptchaMethod(strings.ToLower(value))
	if method != domain.CaptchaManual && method != domain.CaptchaAI {
		b.reply(userID, "Captcha method must be manual or ai.")
		return
	}

	sess := b.sessionFor(ctx, userID)
	sess.CaptchaMethod = method
	if err := b.store.Set(ctx, sess); err != nil {
		b.log.Error("save session", "user_id", userID, "error", err)
		b.reply(userID, "Could not save the captcha method, try again.")
		return
	}
	if method == domain.CaptchaAI && sess.GeminiKey == "" {
		b.reply(userID, "Captcha method set to ai, but no Gemini key is set. Use /set_gemini_key.")
		return
	}
	b.reply(userID, fmt.Sprintf("Captcha method set to %s.", method))
}

func (b *Bot) handleGeminiKey(ctx context.Context, userID int64, args []string) {
	b.askIfMissing(ctx, userID, args,
		"Please send your Gemini API key:",
		"Usage: /set_gemini_key <key>",
		func(value string) { b.applyGeminiKey(ctx, userID, value) })
}

func (b *Bot) applyGeminiKey(ctx context.Context, userID int64, key string) {
	if len(key) < 10 {
		b.reply(userID, "That does not look like a Gemini API key.")
		return
	}

	sess := b.sessionFor(ctx, userID)
	sess.GeminiKey = key
	if err := b.store.Set(ctx, sess); err != nil {
		b.log.Error("save session", "user_id", userID, "error", err)
		b.reply(userID, "Could not save the key, try again.")
		return
	}
	b.reply(userID, fmt.Sprintf("Gemini key saved: %s", maskKey(key)))
}

func maskKey(key string) string {
	if len(key) < 3 {
		return "..."
	}
	if len(key) <= 12 {
		return key[:2] + "..."
	}
	return key[:8] + "..." + key[len(key)-4:]
}

func (b *Bot) handleStatus(ctx context.Context, userID int64) {
	sess, err := b.store.Get(ctx, userID)
	if err != nil {
		b.reply(userID, "No configuration yet. Run /setup first.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Application: %s\n", orUnset(sess.ApplicationNo))
	if sess.DateOfBirth.IsZero() {
		sb.WriteString("Date of birth: not set\n")
	} else {
		fmt.Fprintf(&sb, "Date of birth: %s\n", sess.DOB())
	}
	fmt.Fprintf(&sb, "Check interval: %s\n", sess.CheckInterval)
	fmt.Fprintf(&sb, "Captcha method: %s\n", sess.CaptchaMethod)
	if sess.GeminiKey != "" {
		fmt.Fprintf(&sb, "Gemini key: %s\n", maskKey(sess.GeminiKey))
	}
	fmt.Fprintf(&sb, "Monitoring: %v\n", b.monitor.Active(userID))
	if !sess.LastCheckAt.IsZero() {
		fmt.Fprintf(&sb, "Last check: %s (%s)\n",
			sess.LastCheckAt.Format(time.RFC3339), sess.LastResult)
	}
	fmt.Fprintf(&sb, "Paused: %v", b.sched.Paused())
	b.reply(userID, sb.String())
}

func orUnset(s string) string {
	if s == "" {
		return "not set"
	}
	return s
}

// sessionFor returns the stored session or a fresh one seeded with the
// process-level defaults.
func (b *Bot) sessionFor(ctx context.Context, userID int64) *domain.Session {
	sess, err := b.store.Get(ctx, userID)
	if err == nil {
		return sess
	}
	sess = domain.NewSession(userID)
	sess.CheckInterval = b.cfg.CheckInterval
	sess.GeminiKey = b.cfg.GeminiAPIKey
	return sess
}

func (b *Bot) reply(userID int64, text string) {
	if err := b.msgr.SendMessage(userID, text); err != nil {
		b.log.Error("send message", "user_id", userID, "error", err)
	}
}
