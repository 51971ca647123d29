package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
server:
  http_port: 8081
  cors_origins: ["https://example.test"]
sources:
  - id: primary
    type: tracksino
    endpoint: "http://localhost:9000/history"
    timeout: 3s
  - id: page
    type: html
    endpoint: "http://localhost:9001/"
feed:
  min_spins: 8
predictor:
  seed: 42
storage:
  backend: sqlite
  path: /tmp/rounds.db
alerts:
  rules:
    - name: confident
      condition: "confidence > 90"
      severity: info
  webhooks:
    - type: discord
      url_env: DISCORD_WEBHOOK
`
	cfg := loadFromString(t, yaml)

	assert.Equal(t, 8081, cfg.Server.HTTPPort)
	assert.Equal(t, []string{"https://example.test"}, cfg.Server.CORSOrigins)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, 3*time.Second, cfg.Sources[0].Timeout)
	assert.Equal(t, DefaultSourceTimeout, cfg.Sources[1].Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.Sources[1].UserAgent)
	assert.Equal(t, 8, cfg.Feed.MinSpins)
	assert.Equal(t, uint32(42), cfg.Predictor.Seed)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Len(t, cfg.Alerts.Rules, 1)
	assert.Equal(t, DefaultAlertCooldown, cfg.Alerts.Rules[0].Cooldown)
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "log:\n  level: debug\n")

	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "tracksino", cfg.Sources[0].ID)
	assert.Equal(t, "ltccasino", cfg.Sources[1].ID)
	assert.Equal(t, DefaultMinSpins, cfg.Feed.MinSpins)
	assert.Equal(t, DefaultFeedTimeout, cfg.Feed.Timeout)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.Providers.Anthropic.KeyEnv)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Providers.OpenAI.KeyEnv)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.Providers.Google.KeyEnv)
	assert.Equal(t, DefaultMaxTokens, cfg.Providers.Google.MaxTokens)
	assert.InDelta(t, DefaultTemperature, cfg.Providers.OpenAI.Temperature, 1e-9)
	assert.Zero(t, cfg.Providers.Anthropic.Temperature)
	assert.Equal(t, DefaultMockSpins, cfg.Predictor.MockSpins)
	assert.Equal(t, DefaultRoundTimeout, cfg.Predictor.CallTimeout)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, DefaultInterval, cfg.Schedule.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
}

func TestLoad_PortEnvOverride(t *testing.T) {
	t.Setenv("PORT", "4567")
	cfg := loadFromString(t, "")
	assert.Equal(t, 4567, cfg.Server.HTTPPort)
}

func TestLoad_BadPortEnv(t *testing.T) {
	t.Setenv("PORT", "abc")
	_, err := loadStringErr(t, "")
	require.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CTP_TEST_ANTHROPIC=sk-test\n"), 0o600))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  anthropic:
    key_env: CTP_TEST_ANTHROPIC
`), 0o600))
	t.Cleanup(func() { os.Unsetenv("CTP_TEST_ANTHROPIC") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Providers.Anthropic.Key())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown source type": `
sources:
  - id: x
    type: ftp
    endpoint: "ftp://x"
`,
		"missing id": `
sources:
  - type: tracksino
    endpoint: "http://x"
`,
		"duplicate id": `
sources:
  - id: a
    type: tracksino
    endpoint: "http://x"
  - id: a
    type: ltccasino
    endpoint: "http://y"
`,
		"missing endpoint": `
sources:
  - id: a
    type: tracksino
`,
		"bad auth mode":        "server:\n  auth:\n    mode: oauth\n",
		"apikey without env":   "server:\n  auth:\n    mode: apikey\n",
		"bad storage backend":  "storage:\n  backend: mongo\n",
		"redis without addr":   "feed:\n  cache:\n    backend: redis\n",
		"bad webhook":          "alerts:\n  webhooks:\n    - type: pagerduty\n",
		"rule without name":    "alerts:\n  rules:\n    - condition: \"confidence > 1\"\n",
		"zero min spins":       "feed:\n  min_spins: 0\n",
		"tiny interval":        "schedule:\n  interval: 10ms\n",
		"bad log format":       "log:\n  format: xml\n",
		"port out of range":    "server:\n  http_port: 70000\n",
		"malformed yaml":       "server: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loadStringErr(t, body)
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), "config: "), "error %q lacks package prefix", err)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestKeyAccessors_Unset(t *testing.T) {
	assert.Empty(t, ProviderConfig{}.Key())
	assert.Empty(t, WebhookConfig{}.URL())
	assert.Empty(t, StorageConfig{}.DSN())
	assert.Empty(t, CacheConfig{}.Password())
	assert.Empty(t, AuthConfig{}.Key())
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 3001\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case got <- c:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 3002\n"), 0o600))

	// A truncating write can surface as several events; wait for the final one.
	deadline := time.After(3 * time.Second)
	for seen := false; !seen; {
		select {
		case c := <-got:
			seen = c.Server.HTTPPort == 3002
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}

	cancel()
	require.NoError(t, <-done)
}

// startWatch runs watch in the background and collects reloads.
func startWatch(t *testing.T, path string) <-chan *Config {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, path, 50*time.Millisecond, func(c *Config) { got <- c })
	}()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	time.Sleep(100 * time.Millisecond)
	return got
}

func TestWatch_CoalescesBurst(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 3001\n")
	got := startWatch(t, path)

	for port := 3002; port <= 3005; port++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("server:\n  http_port: %d\n", port)), 0o600))
	}

	select {
	case c := <-got:
		assert.Equal(t, 3005, c.Server.HTTPPort)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
	select {
	case c := <-got:
		t.Fatalf("unexpected second reload: port %d", c.Server.HTTPPort)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_SkipsUnchangedAndInvalid(t *testing.T) {
	body := "server:\n  http_port: 3001\n"
	path := writeConfig(t, body)
	got := startWatch(t, path)

	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))
	select {
	case c := <-got:
		t.Fatalf("unexpected reload: port %d", c.Server.HTTPPort)
	case <-time.After(400 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("server:\n  http_port: 3009\n"), 0o600))
	select {
	case c := <-got:
		assert.Equal(t, 3009, c.Server.HTTPPort)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

func TestWatch_RenameReplace(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: 3001\n")
	got := startWatch(t, path)

	tmp := filepath.Join(filepath.Dir(path), "config.yaml.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("server:\n  http_port: 3010\n"), 0o600))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case c := <-got:
		assert.Equal(t, 3010, c.Server.HTTPPort)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload observed")
	}
}

// loadFromString writes yaml to a temp file and loads it, failing on error.
func loadFromString(t *testing.T, yaml string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, yaml)
	require.NoError(t, err)
	return cfg
}

func loadStringErr(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	return Load(writeConfig(t, yaml))
}

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 2)
	for i, src := range Default().Sources {
		assert.Equal(t, src.Endpoint, cfg.Sources[i].Endpoint)
		assert.Equal(t, DefaultUserAgent, cfg.Sources[i].UserAgent)
	}
	assert.Len(t, cfg.Alerts.Rules, 2)
	assert.Equal(t, DefaultAlertCooldown, cfg.Alerts.Rules[1].Cooldown)
}
