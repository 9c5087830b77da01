package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Handle   string         `toml:"handle"`
	Feed     FeedConfig     `toml:"feed"`
	Harvest  HarvestConfig  `toml:"harvest"`
	Filter   FilterConfig   `toml:"filter"`
	Run      RunConfig      `toml:"run"`
	State    StateConfig    `toml:"state"`
	Archive  ArchiveConfig  `toml:"archive"`
	Cache    CacheConfig    `toml:"cache"`
	Schedule ScheduleConfig `toml:"schedule"`
	Notify   NotifyConfig   `toml:"notify"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

type FeedConfig struct {
	Command     string `toml:"command"`
	BulkReplies bool   `toml:"bulk_replies"`
}

type HarvestConfig struct {
	MaxPages int `toml:"max_pages"`
	DelayMS  int `toml:"delay_ms"`
}

type FilterConfig struct {
	MinAgeHours float64 `toml:"min_age_hours"`
	// MaxAgeHours caps the backlog. +Inf disables the cap.
	MaxAgeHours float64 `toml:"max_age_hours"`
	TimelineN   int     `toml:"timeline_n"`
}

type RunConfig struct {
	MaxPostsPerRun int `toml:"max_posts_per_run"`
}

type StateConfig struct {
	Dir  string `toml:"dir"`
	Path string `toml:"path"`
}

type ArchiveConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Steps bool `toml:"steps"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
	Deliver  bool   `toml:"deliver"`
}

type NotifyConfig struct {
	Command  string   `toml:"command"`
	Channel  string   `toml:"channel"`
	Targets  []string `toml:"targets"`
	MaxChars int      `toml:"max_chars"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Handle:  "1024EX",
		Feed: FeedConfig{
			Command: "bird",
		},
		Harvest: HarvestConfig{
			MaxPages: 50,
			DelayMS:  800,
		},
		Filter: FilterConfig{
			MinAgeHours: 24,
			MaxAgeHours: 240,
			TimelineN:   30,
		},
		Run: RunConfig{
			MaxPostsPerRun: 2,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 * * * *",
			Timezone: "UTC",
		},
		Notify: NotifyConfig{
			Command:  "clawdbot",
			Channel:  "telegram",
			Targets:  []string{},
			MaxChars: 3500,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "threadwatch"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "threadwatch"), nil
}

// Load reads config from path on top of the defaults, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes config to path, creating its directory.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// applyEnvOverrides maps the monitor's environment variables onto the config.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("X_MONITOR_HANDLE"); v != "" {
		c.Handle = strings.TrimPrefix(v, "@")
	}
	if v := os.Getenv("X_MONITOR_BIRD_BIN"); v != "" {
		c.Feed.Command = v
	}
	if v := os.Getenv("X_REPLIES_BULK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("X_REPLIES_BULK: %w", err)
		}
		c.Feed.BulkReplies = b
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"X_REPLIES_MAX_PAGES", &c.Harvest.MaxPages},
		{"X_REPLIES_DELAY_MS", &c.Harvest.DelayMS},
		{"X_TIMELINE_N", &c.Filter.TimelineN},
		{"X_MAX_TWEETS_PER_RUN", &c.Run.MaxPostsPerRun},
		{"TG_MAX_CHARS", &c.Notify.MaxChars},
	}
	for _, o := range ints {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", o.env, v)
		}
		*o.dst = n
	}

	if v := os.Getenv("X_MIN_AGE_HOURS"); v != "" {
		h, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("X_MIN_AGE_HOURS: invalid number %q", v)
		}
		c.Filter.MinAgeHours = h
	}
	if v := os.Getenv("X_MAX_AGE_HOURS"); v != "" {
		h, err := ParseMaxAge(v)
		if err != nil {
			return fmt.Errorf("X_MAX_AGE_HOURS: %w", err)
		}
		c.Filter.MaxAgeHours = h
	}

	if v := os.Getenv("X_MONITOR_STATE_DIR"); v != "" {
		c.State.Dir = v
	}
	if v := os.Getenv("X_MONITOR_STATE_PATH"); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv("X_MONITOR_ARCHIVE"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("X_MONITOR_CACHE_STEPS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("X_MONITOR_CACHE_STEPS: %w", err)
		}
		c.Cache.Steps = b
	}
	if v := os.Getenv("X_MONITOR_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	// TG_DM and TG_GROUP replace the configured targets when either is set.
	var targets []string
	for _, env := range []string{"TG_DM", "TG_GROUP"} {
		if v := os.Getenv(env); v != "" {
			targets = append(targets, v)
		}
	}
	if len(targets) > 0 {
		c.Notify.Targets = targets
	}

	return nil
}

// ParseMaxAge parses a backlog cap in hours. "inf", "off", "none" and
// "disabled" disable the cap and yield +Inf.
func ParseMaxAge(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "+inf", "infinity", "off", "none", "disabled":
		return math.Inf(1), nil
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(h) {
		return math.Inf(1), nil
	}
	return h, nil
}

// Validate checks that the config can drive a run.
func (c *Config) Validate() error {
	var errs []error
	if c.Handle == "" {
		errs = append(errs, errors.New("handle is required"))
	}
	if c.Feed.Command == "" {
		errs = append(errs, errors.New("feed.command is required"))
	}
	if c.Harvest.MaxPages < 1 {
		errs = append(errs, fmt.Errorf("harvest.max_pages must be >= 1, got %d", c.Harvest.MaxPages))
	}
	if c.Harvest.DelayMS < 0 {
		errs = append(errs, fmt.Errorf("harvest.delay_ms must be >= 0, got %d", c.Harvest.DelayMS))
	}
	if c.Filter.TimelineN < 1 {
		errs = append(errs, fmt.Errorf("filter.timeline_n must be >= 1, got %d", c.Filter.TimelineN))
	}
	if c.Filter.MinAgeHours < 0 {
		errs = append(errs, fmt.Errorf("filter.min_age_hours must be >= 0, got %v", c.Filter.MinAgeHours))
	}
	if c.Notify.MaxChars < 1 {
		errs = append(errs, fmt.Errorf("notify.max_chars must be >= 1, got %d", c.Notify.MaxChars))
	}
	return errors.Join(errs...)
}

// StatePath resolves the processed-set state file location.
func (c *Config) StatePath() (string, error) {
	if c.State.Path != "" {
		return c.State.Path, nil
	}
	dir := c.State.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".clawdbot", "x-monitor")
	}
	return filepath.Join(dir, c.Handle+".json"), nil
}

// PageDelay returns the courtesy delay between reply pages.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Harvest.DelayMS) * time.Millisecond
}

// PostsPerRun returns the per-run cap, never below one.
func (c *Config) PostsPerRun() int {
	return max(1, c.Run.MaxPostsPerRun)
}
