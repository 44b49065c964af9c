package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"storefront-bot/storage"

	"github.com/joho/godotenv"
)

type Config struct {
	Discord     DiscordConfig     `json:"discord"`
	Storefront  StorefrontConfig  `json:"storefront"`
	Database    storage.Config    `json:"database"`
	Logger      LoggerConfig      `json:"logger"`
	Metrics     MetricsConfig     `json:"metrics"`
	Events      EventsConfig      `json:"events"`
	Permissions PermissionsConfig `json:"permissions"`
	Tickets     TicketsConfig     `json:"tickets"`
	SpamGuard   SpamGuardConfig   `json:"spam_guard"`
	LangFile    string            `json:"lang_file"`
}

type DiscordConfig struct {
	Token   string `json:"token"`
	GuildID string `json:"guild_id"`
}

type StorefrontConfig struct {
	BaseURL        string  `json:"base_url"`
	APIKey         string  `json:"api_key"`
	ShopID         string  `json:"shop_id"`
	RequestsPerSec float64 `json:"requests_per_sec"`
}

type LoggerConfig struct {
	Level string `json:"level"`
}

type MetricsConfig struct {
	Addr string `json:"addr"`
}

type EventsConfig struct {
	AMQPURL  string `json:"amqp_url"`
	Exchange string `json:"exchange"`
}

// PermissionsConfig holds the process-wide fallbacks used when a guild has
// not configured its own roles.
type PermissionsConfig struct {
	AdminRoleID string   `json:"admin_role_id"`
	StaffRoleID string   `json:"staff_role_id"`
	Whitelist   []string `json:"whitelist"`
	SyncCommand string   `json:"sync_command"`
}

type TicketsConfig struct {
	DiscordCategory       string   `json:"discord_category"`
	AutoCloseAfter        Duration `json:"auto_close_after"`
	SweepInterval         Duration `json:"sweep_interval"`
	TeardownMin           Duration `json:"teardown_min"`
	TeardownMax           Duration `json:"teardown_max"`
	TranscriptInlineLimit int      `json:"transcript_inline_limit"`
}

type SpamGuardConfig struct {
	Window          Duration `json:"window"`
	Threshold       int      `json:"threshold"`
	CleanupInterval Duration `json:"cleanup_interval"`
	DefaultCooldown Duration `json:"default_cooldown"`
}

// Duration reads either a Go duration string ("7s") or a number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MissingVarsError lists every required setting that was not provided.
type MissingVarsError struct {
	Vars []string
}

func (e *MissingVarsError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// Load reads the JSON file at path (a missing file is fine), then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Discord.Token, "DISCORD_TOKEN")
	setFromEnv(&cfg.Discord.GuildID, "GUILD_ID")
	setFromEnv(&cfg.Storefront.APIKey, "STOREFRONT_API_KEY")
	setFromEnv(&cfg.Storefront.ShopID, "STOREFRONT_SHOP_ID")
	setFromEnv(&cfg.Storefront.BaseURL, "STOREFRONT_BASE_URL")
	setFromEnv(&cfg.Logger.Level, "LOG_LEVEL")
	setFromEnv(&cfg.Database.Driver, "DATABASE_DRIVER")
	setFromEnv(&cfg.Events.AMQPURL, "AMQP_URL")
	setFromEnv(&cfg.Metrics.Addr, "METRICS_ADDR")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.Redis.DB = n
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storefront.BaseURL == "" {
		cfg.Storefront.BaseURL = "https://api.sellauth.com/v1"
	}
	if cfg.Storefront.RequestsPerSec <= 0 {
		cfg.Storefront.RequestsPerSec = 5
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "file"
	}
	if cfg.Database.File.Dir == "" {
		cfg.Database.File.Dir = "data"
	}
	if cfg.Database.SQLite.Path == "" {
		cfg.Database.SQLite.Path = "data/bot.db"
	}
	if cfg.Events.Exchange == "" {
		cfg.Events.Exchange = "tickets"
	}
	if cfg.Permissions.SyncCommand == "" {
		cfg.Permissions.SyncCommand = "sync"
	}

	t := &cfg.Tickets
	if t.AutoCloseAfter <= 0 {
		t.AutoCloseAfter = Duration(24 * time.Hour)
	}
	if t.SweepInterval <= 0 {
		t.SweepInterval = Duration(time.Hour)
	}
	if t.TeardownMin <= 0 {
		t.TeardownMin = Duration(3 * time.Second)
	}
	if t.TeardownMax < t.TeardownMin {
		t.TeardownMax = t.TeardownMin + Duration(2*time.Second)
	}
	if t.TranscriptInlineLimit <= 0 {
		t.TranscriptInlineLimit = 1900
	}

	sg := &cfg.SpamGuard
	if sg.Window <= 0 {
		sg.Window = Duration(7 * time.Second)
	}
	if sg.Threshold <= 0 {
		sg.Threshold = 2
	}
	if sg.CleanupInterval <= 0 {
		sg.CleanupInterval = Duration(5 * time.Minute)
	}
	if sg.DefaultCooldown <= 0 {
		sg.DefaultCooldown = Duration(3 * time.Second)
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.Discord.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if c.Storefront.APIKey == "" {
		missing = append(missing, "STOREFRONT_API_KEY")
	}
	if c.Storefront.ShopID == "" {
		missing = append(missing, "STOREFRONT_SHOP_ID")
	}
	if len(missing) > 0 {
		return &MissingVarsError{Vars: missing}
	}
	return nil
}

// SingleGuild reports whether the bot is pinned to one guild.
func (c *Config) SingleGuild() bool {
	return c.Discord.GuildID != ""
}
