package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ScannerSettings configuration for the flag scanner
type ScannerSettings struct {
	WorkspaceDir  string `mapstructure:"workspace_dir"`
	IndexEnabled  bool   `mapstructure:"index_enabled"`
	IndexDir      string `mapstructure:"index_dir"`
	WatchEnabled  bool   `mapstructure:"watch_enabled"`
	MaxFileSize   int64  `mapstructure:"max_file_size"`
	MaxResults    int    `mapstructure:"max_results"`
	ContextRadius int    `mapstructure:"context_radius"`
}

// Settings application settings
type Settings struct {
	Transport string          `mapstructure:"transport"`
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	Auth      AuthSettings    `mapstructure:"auth"`
	Scanner   ScannerSettings `mapstructure:"scanner"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	// Scanner defaults
	v.SetDefault("scanner.workspace_dir", ".")
	v.SetDefault("scanner.index_enabled", false)
	v.SetDefault("scanner.index_dir", defaultIndexDir())
	v.SetDefault("scanner.watch_enabled", false)
	v.SetDefault("scanner.max_file_size", int64(256*1024)) // 256KB
	v.SetDefault("scanner.max_results", 20)
	v.SetDefault("scanner.context_radius", 50)

	// Environment variables
	v.SetEnvPrefix("FLIPPER_MCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("auth.type", "FLIPPER_MCP_AUTH_TYPE")
	_ = v.BindEnv("auth.basic.username", "FLIPPER_MCP_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("auth.basic.password", "FLIPPER_MCP_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("auth.api_keys", "FLIPPER_MCP_AUTH_API_KEYS")

	// Scanner env var bindings
	_ = v.BindEnv("scanner.workspace_dir", "FLIPPER_MCP_SCANNER_WORKSPACE_DIR")
	_ = v.BindEnv("scanner.index_enabled", "FLIPPER_MCP_SCANNER_INDEX_ENABLED")
	_ = v.BindEnv("scanner.index_dir", "FLIPPER_MCP_SCANNER_INDEX_DIR")
	_ = v.BindEnv("scanner.watch_enabled", "FLIPPER_MCP_SCANNER_WATCH_ENABLED")
	_ = v.BindEnv("scanner.max_file_size", "FLIPPER_MCP_SCANNER_MAX_FILE_SIZE")
	_ = v.BindEnv("scanner.max_results", "FLIPPER_MCP_SCANNER_MAX_RESULTS")
	_ = v.BindEnv("scanner.context_radius", "FLIPPER_MCP_SCANNER_CONTEXT_RADIUS")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		_ = v.BindPFlag("auth.type", flags.Lookup("auth-type"))
		_ = v.BindPFlag("auth.basic.username", flags.Lookup("auth-basic-username"))
		_ = v.BindPFlag("auth.basic.password", flags.Lookup("auth-basic-password"))
		_ = v.BindPFlag("auth.api_keys", flags.Lookup("auth-api-keys"))

		// Scanner CLI flags
		_ = v.BindPFlag("scanner.workspace_dir", flags.Lookup("workspace-dir"))
		_ = v.BindPFlag("scanner.index_enabled", flags.Lookup("index-enabled"))
		_ = v.BindPFlag("scanner.index_dir", flags.Lookup("index-dir"))
		_ = v.BindPFlag("scanner.watch_enabled", flags.Lookup("watch-enabled"))
		_ = v.BindPFlag("scanner.max_file_size", flags.Lookup("max-file-size"))
		_ = v.BindPFlag("scanner.max_results", flags.Lookup("max-results"))
		_ = v.BindPFlag("scanner.context_radius", flags.Lookup("context-radius"))
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv("FLIPPER_MCP_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	// Trim spaces from API keys
	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}

	// Expand home directory in paths
	settings.Scanner.WorkspaceDir = expandHomeDir(settings.Scanner.WorkspaceDir)
	settings.Scanner.IndexDir = expandHomeDir(settings.Scanner.IndexDir)

	return &settings, nil
}

// defaultIndexDir returns the default directory for the usage index
func defaultIndexDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flipper-mcp"
	}
	return filepath.Join(home, ".flipper-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	// Validate scanner settings
	if err := validateScannerSettings(&s.Scanner); err != nil {
		return err
	}

	return nil
}

// validateScannerSettings validates the scanner configuration
func validateScannerSettings(s *ScannerSettings) error {
	if s.WorkspaceDir == "" {
		return errors.New("workspace-dir cannot be empty")
	}

	if s.MaxFileSize <= 0 {
		return errors.New("max-file-size must be positive")
	}

	if s.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	if s.ContextRadius <= 0 {
		return errors.New("context-radius must be positive")
	}

	if s.IndexEnabled && s.IndexDir == "" {
		return errors.New("index-enabled requires index-dir")
	}

	return nil
}
