package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the service reads from the environment. A .env
// file in the working directory is merged in first when present.
type Config struct {
	ListenAddr string
	PublicURL  string

	DatabaseDSN string

	AccessSecret   string
	RefreshSecret  string
	TokenIssuer    string
	TokenAudience  string
	AccessTTL      time.Duration
	RememberMeTTL  time.Duration
	RefreshTTL     time.Duration
	ResetTokenTTL  time.Duration

	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	UploadDir     string
	UploadBaseURL string

	MigrationsDir string
	SeedsDir      string

	RateBurst  int
	RatePerSec int
}

const envPrefix = "LOADTRACKER_"

// Load reads configuration from the environment, applying defaults and
// validating the values the service cannot run without.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		PublicURL:  getenv("PUBLIC_URL", "http://localhost:8080"),

		DatabaseDSN: getenv("PG_DSN", ""),

		AccessSecret:  getenv("ACCESS_SECRET", ""),
		RefreshSecret: getenv("REFRESH_SECRET", ""),
		TokenIssuer:   getenv("TOKEN_ISSUER", "loadtracker"),
		TokenAudience: getenv("TOKEN_AUDIENCE", "loadtracker-app"),

		SMTPAddr:     getenv("SMTP_ADDR", ""),
		SMTPUsername: getenv("SMTP_USERNAME", ""),
		SMTPPassword: getenv("SMTP_PASSWORD", ""),
		MailFrom:     getenv("MAIL_FROM", "no-reply@loadtracker.app"),

		UploadDir:     getenv("UPLOAD_DIR", "public/uploads"),
		UploadBaseURL: getenv("UPLOAD_BASE_URL", "/uploads"),

		MigrationsDir: getenv("MIGRATIONS_DIR", "migrations"),
		SeedsDir:      getenv("SEEDS_DIR", "seeds"),
	}

	var err error
	if cfg.AccessTTL, err = getDuration("ACCESS_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RememberMeTTL, err = getDuration("REMEMBER_ME_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = getDuration("REFRESH_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ResetTokenTTL, err = getDuration("RESET_TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RateBurst, err = getInt("RATE_BURST", 50); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = getInt("RATE_PER_SEC", 25); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.AccessSecret) == "" {
		return errors.New("config: " + envPrefix + "ACCESS_SECRET is required")
	}
	if strings.TrimSpace(c.RefreshSecret) == "" {
		return errors.New("config: " + envPrefix + "REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s%s must be positive", envPrefix, key)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s%s must be positive", envPrefix, key)
	}
	return n, nil
}
