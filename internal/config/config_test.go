package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "1024EX", cfg.Handle)
	assert.Equal(t, 50, cfg.Harvest.MaxPages)
	assert.Equal(t, 800*time.Millisecond, cfg.PageDelay())
	assert.Equal(t, 24.0, cfg.Filter.MinAgeHours)
	assert.Equal(t, 240.0, cfg.Filter.MaxAgeHours)
	assert.Equal(t, 30, cfg.Filter.TimelineN)
	assert.Equal(t, 2, cfg.PostsPerRun())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
handle = "someone"

[harvest]
max_pages = 5

[filter]
max_age_hours = inf
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "someone", cfg.Handle)
	assert.Equal(t, 5, cfg.Harvest.MaxPages)
	assert.Equal(t, 800, cfg.Harvest.DelayMS, "unset keys keep their default")
	assert.True(t, math.IsInf(cfg.Filter.MaxAgeHours, 1))
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("handle = ["), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("numeric knobs", func(t *testing.T) {
		t.Setenv("X_REPLIES_MAX_PAGES", "7")
		t.Setenv("X_REPLIES_DELAY_MS", "0")
		t.Setenv("X_MIN_AGE_HOURS", "12.5")
		t.Setenv("X_TIMELINE_N", "10")
		t.Setenv("X_MAX_TWEETS_PER_RUN", "0")

		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, 7, cfg.Harvest.MaxPages)
		assert.Equal(t, time.Duration(0), cfg.PageDelay())
		assert.Equal(t, 12.5, cfg.Filter.MinAgeHours)
		assert.Equal(t, 10, cfg.Filter.TimelineN)
		assert.Equal(t, 1, cfg.PostsPerRun(), "per-run cap is floored at one")
	})

	t.Run("max age can be disabled", func(t *testing.T) {
		for _, v := range []string{"inf", "off", "None", "disabled"} {
			t.Setenv("X_MAX_AGE_HOURS", v)
			cfg := Default()
			require.NoError(t, cfg.applyEnvOverrides())
			assert.True(t, math.IsInf(cfg.Filter.MaxAgeHours, 1), v)
		}
	})

	t.Run("invalid integer is rejected", func(t *testing.T) {
		t.Setenv("X_REPLIES_MAX_PAGES", "lots")
		cfg := Default()
		assert.ErrorContains(t, cfg.applyEnvOverrides(), "X_REPLIES_MAX_PAGES")
	})

	t.Run("handle strips at-sign", func(t *testing.T) {
		t.Setenv("X_MONITOR_HANDLE", "@other")
		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "other", cfg.Handle)
	})

	t.Run("telegram targets", func(t *testing.T) {
		t.Setenv("TG_DM", "111")
		t.Setenv("TG_GROUP", "-222")
		cfg := Default()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, []string{"111", "-222"}, cfg.Notify.Targets)
	})
}

func TestStatePath(t *testing.T) {
	cfg := Default()
	cfg.State.Dir = "/var/lib/tw"
	p, err := cfg.StatePath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/tw/1024EX.json", p)

	cfg.State.Path = "/tmp/explicit.json"
	p, err = cfg.StatePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.json", p)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Handle = ""
	cfg.Harvest.MaxPages = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handle is required")
	assert.Contains(t, err.Error(), "harvest.max_pages")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	cfg := Default()
	cfg.Filter.MaxAgeHours = math.Inf(1)
	cfg.Notify.Targets = []string{"42"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, math.IsInf(loaded.Filter.MaxAgeHours, 1))
	assert.Equal(t, []string{"42"}, loaded.Notify.Targets)
}
