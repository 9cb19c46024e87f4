package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://hacker-news.firebaseio.com/v0", cfg.BaseURL)
	assert.Equal(t, 20, cfg.MaxStories)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetParallel())
	assert.False(t, cfg.GetBail())
	assert.NoError(t, cfg.Validate())
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hncheck.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"baseUrl":"http://localhost:3000/v0","maxStories":5,"bail":true}`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/v0", cfg.BaseURL)
	assert.Equal(t, 5, cfg.MaxStories)
	assert.True(t, cfg.GetBail())
	assert.Equal(t, 30000, cfg.Timeout, "unset fields keep defaults")
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hncheck.yaml")
	content := "baseUrl: http://localhost:3000/v0\nprefetch: 4\nreporters: [json, junit]\nparallel: true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Prefetch)
	assert.Equal(t, []string{"json", "junit"}, cfg.Reporters)
	assert.True(t, cfg.GetParallel())
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hncheck.config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"Accept": "application/json"}

	merged := base.Merge(&Config{
		Timeout: 5000,
		Bail:    BoolPtr(true),
		Headers: map[string]string{"X-Trace": "1"},
	})

	assert.Equal(t, 5000, merged.Timeout)
	assert.True(t, merged.GetBail())
	assert.False(t, merged.GetVerbose())
	assert.Equal(t, map[string]string{"Accept": "application/json", "X-Trace": "1"}, merged.Headers)
	assert.Len(t, base.Headers, 1, "merge must not mutate the receiver")
	assert.Same(t, base, base.Merge(nil))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("BASE_URL", "http://fallback/v0")
	t.Setenv("HNCHECK_MAX_STORIES", "7")
	t.Setenv("HNCHECK_RATE_LIMIT", "2.5")
	t.Setenv("HNCHECK_BAIL", "true")
	t.Setenv("HNCHECK_REPORTERS", "console,tap")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://fallback/v0", cfg.BaseURL)
	assert.Equal(t, 7, cfg.MaxStories)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.True(t, cfg.GetBail())
	assert.Equal(t, []string{"console", "tap"}, cfg.Reporters)
	assert.Nil(t, cfg.Parallel)

	t.Setenv("HNCHECK_BASE_URL", "http://primary/v0")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://primary/v0", cfg.BaseURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("HNCHECK_TIMEOUT", "soon")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HNCHECK_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Prefetch = -1
	assert.Error(t, cfg.Validate())
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.MaxStories = 9

	for _, name := range []string{"out.json", "out.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9, loaded.MaxStories, name)
	}
}
