package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      3000,
			StaticDir: "public",
		},
		Game: GameConfig{
			EndGameDelay: 100 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, validConfig(), cfg)
	assert.False(t, cfg.Ngrok.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	err := os.WriteFile(path, []byte(`
server:
  host: 127.0.0.1
  port: 4001
  static_dir: ""
game:
  end_game_delay: 250ms
logging:
  level: debug
  format: json
ngrok:
  enabled: true
  domain: ttt.example.com
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:4001", cfg.Server.Addr())
	assert.Empty(t, cfg.Server.StaticDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Game.EndGameDelay)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Ngrok.Enabled)
	assert.Equal(t, "ttt.example.com", cfg.Ngrok.Domain)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\nlogging:\n  level: loud\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TICTACTOE_SERVER_PORT", "9090")
	t.Setenv("TICTACTOE_GAME_END_GAME_DELAY", "1s")
	t.Setenv("TICTACTOE_LOGGING_FORMAT", "json")
	t.Setenv("NGROK_AUTHTOKEN", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Game.EndGameDelay)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "secret", cfg.Ngrok.AuthToken)
}

func TestBarePortEnv(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)

	t.Setenv("TICTACTOE_SERVER_PORT", "8082")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, 8082, cfg.Server.Port, "prefixed variable wins over PORT")
}

func TestValidateLoggingLevel(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := validConfig()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q should be valid", level)
	}
	cfg := validConfig()
	cfg.Logging.Level = "trace"
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingFormat(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		cfg := validConfig()
		cfg.Logging.Format = format
		assert.NoError(t, cfg.Validate(), "format %q should be valid", format)
	}
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestValidateEndGameDelay(t *testing.T) {
	cfg := validConfig()
	cfg.Game.EndGameDelay = 0
	assert.NoError(t, cfg.Validate())

	cfg.Game.EndGameDelay = -time.Millisecond
	assert.Error(t, cfg.Validate())
}

// Property-based tests

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}
