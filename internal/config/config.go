// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App           AppConfig
	Logger        LoggerConfig
	Data          DataConfig
	Server        ServerConfig
	AI            AIConfig
	Reader        ReaderConfig
	Illustrations IllustrationsConfig
	Import        ImportConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds local storage configuration.
type DataConfig struct {
	// BasePath is the root of all persisted state: the database lives in
	// {base}/db, generated illustrations and covers in {base}/media.
	BasePath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	AdvertiseMDNS bool
}

// AIConfig holds generative backend configuration.
type AIConfig struct {
	// BaseURL of the completion/image service. Empty APIKey disables
	// assisted metadata, chat, and illustrations; everything else works.
	BaseURL    string
	APIKey     string
	TextModel  string
	ImageModel string
	// RequestsPerMinute paces outbound calls across all AI endpoints.
	RequestsPerMinute int
}

// ReaderConfig holds immersive reader configuration.
type ReaderConfig struct {
	// PageSize is the pagination window in characters.
	PageSize int
	// NarrationWPM is the paced narration engine's base words-per-minute
	// at rate 1.0.
	NarrationWPM int
}

// IllustrationsConfig holds AI illustration configuration.
type IllustrationsConfig struct {
	// Enabled is the default for new reader sessions; each session can
	// toggle it independently.
	Enabled bool
}

// ImportConfig holds document import configuration.
type ImportConfig struct {
	// InboxPath, when set, is watched for dropped PDF files which are
	// imported automatically.
	InboxPath string
	// PdftotextPath and PdftoppmPath override auto-detection of the
	// poppler tools used for PDF text extraction and cover rasterization.
	PdftotextPath string
	PdftoppmPath  string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for local storage")
	serverName := flag.String("server-name", "", "Name for the server")
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	advertiseMDNS := flag.String("advertise-mdns", "", "Advertise via mDNS/Zeroconf (default: true)")

	aiBaseURL := flag.String("ai-base-url", "", "Base URL of the generative AI backend")
	aiAPIKey := flag.String("ai-api-key", "", "API key for the generative AI backend")
	aiTextModel := flag.String("ai-text-model", "", "Text completion model name")
	aiImageModel := flag.String("ai-image-model", "", "Image generation model name")

	pageSize := flag.String("page-size", "", "Reader page size in characters (default: 1800)")
	narrationWPM := flag.String("narration-wpm", "", "Paced narration base words per minute (default: 160)")
	illustrations := flag.String("illustrations", "", "Enable AI illustrations by default (default: true)")

	inboxPath := flag.String("import-inbox", "", "Folder watched for dropped PDF files")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Name:          getConfigValue(*serverName, "SERVER_NAME", "BookWyrm Server"),
			Port:          getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AdvertiseMDNS: getBoolConfigValue(*advertiseMDNS, "ADVERTISE_MDNS", true),
		},
		AI: AIConfig{
			BaseURL:           getConfigValue(*aiBaseURL, "AI_BASE_URL", "https://generativelanguage.googleapis.com"),
			APIKey:            getConfigValue(*aiAPIKey, "AI_API_KEY", ""),
			TextModel:         getConfigValue(*aiTextModel, "AI_TEXT_MODEL", "gemini-2.5-flash"),
			ImageModel:        getConfigValue(*aiImageModel, "AI_IMAGE_MODEL", "imagen-4.0-generate-001"),
			RequestsPerMinute: getIntConfigValue("", "AI_REQUESTS_PER_MINUTE", 20),
		},
		Reader: ReaderConfig{
			PageSize:     getIntConfigValue(*pageSize, "READER_PAGE_SIZE", 1800),
			NarrationWPM: getIntConfigValue(*narrationWPM, "NARRATION_WPM", 160),
		},
		Illustrations: IllustrationsConfig{
			Enabled: getBoolConfigValue(*illustrations, "ILLUSTRATIONS_ENABLED", true),
		},
		Import: ImportConfig{
			InboxPath:     getConfigValue(*inboxPath, "IMPORT_INBOX_PATH", ""),
			PdftotextPath: getConfigValue("", "PDFTOTEXT_PATH", ""),
			PdftoppmPath:  getConfigValue("", "PDFTOPPM_PATH", ""),
		},
	}

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandInboxPath(); err != nil {
		return nil, fmt.Errorf("invalid import inbox path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.Reader.PageSize <= 0 {
		return fmt.Errorf("invalid page size: %d (must be positive)", c.Reader.PageSize)
	}
	if c.Reader.NarrationWPM <= 0 {
		return fmt.Errorf("invalid narration WPM: %d (must be positive)", c.Reader.NarrationWPM)
	}

	// AI.APIKey may be empty - AI-assisted features degrade gracefully.

	return nil
}

// DatabasePath returns the badger directory under the data base path.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.BasePath, "db")
}

// MediaPath returns the directory for stored covers and illustrations.
func (c *Config) MediaPath() string {
	return filepath.Join(c.Data.BasePath, "media")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute, defaulting to
// ~/BookWyrm.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "BookWyrm")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandInboxPath expands ~ and makes the path absolute.
// Empty is allowed and means the import inbox watcher is disabled.
func (c *Config) expandInboxPath() error {
	if c.Import.InboxPath == "" {
		return nil
	}

	expanded, err := expandPath(c.Import.InboxPath, "")
	if err != nil {
		return err
	}
	c.Import.InboxPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Only set if not already present in the environment.
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}
