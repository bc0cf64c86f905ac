package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"
)

const (
	ClipStrategyFragment = "fragment"
	ClipStrategyTrim     = "trim"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Env       string `env:"ENV" envDefault:"production"`
	Port      string `env:"PORT" envDefault:"8080"`
	BaseURL   string `env:"BASE_URL"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`

	JWTSecret           string        `env:"JWT_SECRET,required"`
	TokenTTL            time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	RegistrationEnabled bool          `env:"REGISTRATION_ENABLED" envDefault:"false"`

	AssemblyAIAPIKey      string        `env:"ASSEMBLYAI_API_KEY"`
	AssemblyAIBaseURL     string        `env:"ASSEMBLYAI_BASE_URL" envDefault:"https://api.assemblyai.com"`
	PollInterval          time.Duration `env:"TRANSCRIPTION_POLL_INTERVAL" envDefault:"30s"`
	MaxPollAttempts       int           `env:"TRANSCRIPTION_MAX_POLL_ATTEMPTS" envDefault:"20"`
	WorkerConcurrency     int           `env:"WORKER_CONCURRENCY" envDefault:"5"`
	StaleReapSchedule     string        `env:"STALE_REAP_SCHEDULE" envDefault:"@every 15m"`
	StaleTranscriptionAge time.Duration `env:"STALE_TRANSCRIPTION_AGE"`

	SupabaseURL   string `env:"SUPABASE_URL"`
	SupabaseKey   string `env:"SUPABASE_KEY"`
	StorageBucket string `env:"STORAGE_BUCKET" envDefault:"podcasts"`

	ClipStrategy   string `env:"CLIP_STRATEGY" envDefault:"fragment"`
	FFmpegPath     string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"524288000"`

	PublicRateLimit float64 `env:"PUBLIC_RATE_LIMIT" envDefault:"5"`
	PublicRateBurst int     `env:"PUBLIC_RATE_BURST" envDefault:"20"`
	// TrustedProxies lists the IPs or CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("TRANSCRIPTION_POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.MaxPollAttempts <= 0 {
		return fmt.Errorf("TRANSCRIPTION_MAX_POLL_ATTEMPTS must be positive, got %d", c.MaxPollAttempts)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	switch c.ClipStrategy {
	case ClipStrategyFragment:
	case ClipStrategyTrim:
		if !c.HasStorage() {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required when CLIP_STRATEGY=trim")
		}
	default:
		return fmt.Errorf("CLIP_STRATEGY must be %q or %q, got %q", ClipStrategyFragment, ClipStrategyTrim, c.ClipStrategy)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "JWT_SECRET", value: c.JWTSecret},
		{name: "REDIS_URL", value: c.RedisURL},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HasStorage reports whether object storage credentials are configured.
func (c *Config) HasStorage() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// StaleAfter is how long an episode may sit in_progress before the reaper fails it.
// It defaults to the full poll window plus ten minutes.
func (c *Config) StaleAfter() time.Duration {
	if c.StaleTranscriptionAge > 0 {
		return c.StaleTranscriptionAge
	}
	return c.PollInterval*time.Duration(c.MaxPollAttempts) + 10*time.Minute
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address is a single-host prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, raw := range c.TrustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is invalid: %w", raw, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is invalid: %w", raw, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
