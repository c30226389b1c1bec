package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Reader: ReaderConfig{PageSize: 1800, NarrationWPM: 160},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"WARN", true}, // levels are case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_ReaderSettings(t *testing.T) {
	cfg := validConfig()
	cfg.Reader.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Reader.NarrationWPM = -1
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), expanded)

	expanded, err = expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", expanded)

	expanded, err = expandPath("/abs/path", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", expanded)
}

func TestDerivedPaths(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, filepath.Join("/some/path", "db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join("/some/path", "media"), cfg.MediaPath())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"# comment\nTEST_READING_KEY=hello\nTEST_QUOTED_KEY=\"quoted\"\n"), 0o600))

	t.Setenv("TEST_READING_KEY", "") // ensure cleanup
	os.Unsetenv("TEST_READING_KEY")
	os.Unsetenv("TEST_QUOTED_KEY")

	require.NoError(t, loadEnvFile(envPath))
	assert.Equal(t, "hello", os.Getenv("TEST_READING_KEY"))
	assert.Equal(t, "quoted", os.Getenv("TEST_QUOTED_KEY"))
}
