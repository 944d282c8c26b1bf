package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Defaults returns a configuration with every knob at its reference
// value. Used directly by tests and as the base for Load.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "kgbridge",
			LogLevel: "INFO",
		},
		State: StateConfig{
			Path: "kgbridge.db",
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8750",
		},
		Agent: AgentConfig{
			Mode:      "production",
			Autostart: true,
			Command:   "kg-agent",
		},
		Supervisor: SupervisorConfig{
			CrashWindow:    60 * time.Second,
			CrashThreshold: 2,
			RestartDelay:   1 * time.Second,
			StartupTimeout: 4 * time.Second,
			KillGrace:      250 * time.Millisecond,
			MaxLineBytes:   1 << 20,
			MaxBufferBytes: 2 << 20,
		},
	}
}

// Load reads and parses configuration from a YAML file, expands
// ${ENV_VAR} references, fills defaults, and validates.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}
	if info.IsDir() {
		absPath = filepath.Join(absPath, "config.yaml")
		if _, err := os.Stat(absPath); err != nil {
			return nil, fmt.Errorf("directory provided but config.yaml not found: %s", absPath)
		}
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	data = []byte(expandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", absPath, err)
	}

	applyDerivedDefaults(cfg, absPath)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DiscoverConfigDir finds a configuration location when none is given
// on the command line.
func DiscoverConfigDir() (string, error) {
	// 1. Check environment variable
	if dir := os.Getenv("KGBRIDGE_CONFIG_DIR"); dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		}
	}

	// 2. Check user config directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		userConfigDir := filepath.Join(homeDir, ".config", "kgbridge")
		if _, err := os.Stat(userConfigDir); err == nil {
			return userConfigDir, nil
		}
	}

	// 3. Check system config directory
	systemConfigDir := "/etc/kgbridge"
	if _, err := os.Stat(systemConfigDir); err == nil {
		return systemConfigDir, nil
	}

	// 4. Fallback to a single-file config in the current directory
	localConfigPath := "./config.yaml"
	if _, err := os.Stat(localConfigPath); err == nil {
		return localConfigPath, nil
	}

	return "", fmt.Errorf("no config found (checked: $KGBRIDGE_CONFIG_DIR, ~/.config/kgbridge, /etc/kgbridge, ./config.yaml)")
}

// expandEnvVars replaces ${VAR} with the environment value. Unset
// variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyDerivedDefaults fills values that depend on the config location.
func applyDerivedDefaults(cfg *Config, configPath string) {
	dir := filepath.Dir(configPath)
	if cfg.State.Path != "" && !filepath.IsAbs(cfg.State.Path) {
		cfg.State.Path = filepath.Join(dir, cfg.State.Path)
	}
	if cfg.Service.LockPath == "" {
		cfg.Service.LockPath = filepath.Join(filepath.Dir(cfg.State.Path), "kgbridge.pid")
	}
}

func validate(cfg *Config) error {
	switch cfg.Agent.Mode {
	case "production", "development", "mock":
	default:
		return fmt.Errorf("agent.mode %q is not one of production, development, mock", cfg.Agent.Mode)
	}

	if cfg.Agent.Mode == "production" && cfg.Agent.Command == "" {
		return fmt.Errorf("agent.command is required in production mode")
	}
	if cfg.Agent.Mode == "development" && cfg.Agent.DevCommand == "" {
		return fmt.Errorf("agent.dev_command is required in development mode")
	}
	if cfg.Agent.Mode == "mock" && cfg.Agent.MockCommand == "" {
		return fmt.Errorf("agent.mock_command is required in mock mode")
	}

	s := cfg.Supervisor
	if s.CrashWindow <= 0 {
		return fmt.Errorf("supervisor.crash_window must be positive, got %v", s.CrashWindow)
	}
	if s.CrashThreshold < 1 {
		return fmt.Errorf("supervisor.crash_threshold must be at least 1, got %d", s.CrashThreshold)
	}
	if s.RestartDelay < 0 {
		return fmt.Errorf("supervisor.restart_delay must not be negative, got %v", s.RestartDelay)
	}
	if s.StartupTimeout <= 0 {
		return fmt.Errorf("supervisor.startup_timeout must be positive, got %v", s.StartupTimeout)
	}
	if s.KillGrace <= 0 {
		return fmt.Errorf("supervisor.kill_grace must be positive, got %v", s.KillGrace)
	}
	if s.MaxLineBytes <= 0 {
		return fmt.Errorf("supervisor.max_line_bytes must be positive, got %d", s.MaxLineBytes)
	}
	if s.MaxBufferBytes < s.MaxLineBytes {
		return fmt.Errorf("supervisor.max_buffer_bytes (%d) must be at least max_line_bytes (%d)",
			s.MaxBufferBytes, s.MaxLineBytes)
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return fmt.Errorf("api.listen is required when the API is enabled")
		}
		if cfg.API.Auth.APIKey == "" && len(cfg.API.Auth.Tokens) == 0 {
			return fmt.Errorf("api.auth.api_key or api.auth.tokens is required when the API is enabled")
		}
		for i, tok := range cfg.API.Auth.Tokens {
			if tok.Token == "" {
				return fmt.Errorf("api.auth.tokens[%d].token is empty", i)
			}
			if len(tok.Scopes) == 0 {
				return fmt.Errorf("api.auth.tokens[%d] has no scopes", i)
			}
		}
	}

	if cfg.State.Path == "" {
		return fmt.Errorf("state.path is required")
	}
	return nil
}
