package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// AppConfig is read from environment variables. Credentials have no
// fallbacks: a missing required value fails startup.
type AppConfig struct {
	Env string `env:"SLOTBOT_ENV" env-default:"prod"`

	TelegramAPIID   int32  `env:"TELEGRAM_API_ID" env-required:"true"`
	TelegramAPIHash string `env:"TELEGRAM_API_HASH" env-required:"true"`
	BotToken        string `env:"BOT_TOKEN" env-required:"true"`
	SessionDir      string `env:"SESSION_DIR" env-default:"./tdlib-data"`

	// AuthorizedUsers is a comma separated id allowlist; empty allows everyone.
	AuthorizedUsers []int64 `env:"AUTHORIZED_USERS"`

	TargetBaseURL string        `env:"TARGET_BASE_URL" env-default:"https://sarathi.parivahan.gov.in"`
	StateCode     string        `env:"STATE_CODE" env-default:"JK"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" env-default:"30s"`

	CheckInterval       time.Duration `env:"CHECK_INTERVAL" env-default:"30m"`
	CaptchaReplyTimeout time.Duration `env:"CAPTCHA_REPLY_TIMEOUT" env-default:"5m"`

	// GeminiAPIKey seeds new sessions; users override it with set_gemini_key.
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL" env-default:"gemini-2.5-flash-lite"`

	// RedisAddr switches the session store from in-memory to Redis.
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisSessionTTL time.Duration `env:"REDIS_SESSION_TTL"`

	HealthAddr string `env:"HEALTH_ADDR" env-default:":8080"`

	QuietHours  bool `env:"QUIET_HOURS" env-default:"true"`
	PauseHour   int  `env:"PAUSE_HOUR" env-default:"21"`
	ResumeHour  int  `env:"RESUME_HOUR" env-default:"7"`
}

func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Env != EnvDev && c.Env != EnvProd {
		return fmt.Errorf("SLOTBOT_ENV must be %q or %q, got %q", EnvDev, EnvProd, c.Env)
	}
	if c.CheckInterval < time.Minute {
		return fmt.Errorf("CHECK_INTERVAL must be at least 1m, got %s", c.CheckInterval)
	}
	if c.PauseHour < 0 || c.PauseHour > 23 || c.ResumeHour < 0 || c.ResumeHour > 23 {
		return fmt.Errorf("PAUSE_HOUR/RESUME_HOUR must be within 0..23")
	}
	return nil
}

func (c *AppConfig) IsAuthorized(userID int64) bool {
	if len(c.AuthorizedUsers) == 0 {
		return true
	}
	for _, id := range c.AuthorizedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
