package config

import "time"

// Config represents the complete kgbridge configuration.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	State      StateConfig      `yaml:"state"`
	API        APIConfig        `yaml:"api,omitempty"`
	Agent      AgentConfig      `yaml:"agent"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	// LockPath is the PID lock file. Empty defaults to <data dir>/kgbridge.pid.
	LockPath string `yaml:"lock_path,omitempty"`
}

// StateConfig defines where the session history database lives.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the admin bearer token (full access). Use Tokens for
	// scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// AgentConfig describes the supervised agent process and how its
// command line is resolved.
type AgentConfig struct {
	// Mode selects command resolution: "production", "development",
	// or "mock".
	Mode string `yaml:"mode"`

	// Autostart spawns the agent as soon as the daemon is up.
	Autostart bool `yaml:"autostart"`

	// Command is the production executable (PATH lookup applies).
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`

	// DevCommand is the development-mode executable, typically a
	// repo-local script.
	DevCommand string   `yaml:"dev_command,omitempty"`
	DevArgs    []string `yaml:"dev_args,omitempty"`

	// MockCommand substitutes an arbitrary executable in mock mode so
	// the supervisor is testable without the real agent binary.
	MockCommand string   `yaml:"mock_command,omitempty"`
	MockArgs    []string `yaml:"mock_args,omitempty"`

	Workdir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// SupervisorConfig tunes the process supervisor and frame decoder.
type SupervisorConfig struct {
	// CrashWindow is the sliding window for crash accounting.
	CrashWindow time.Duration `yaml:"crash_window"`

	// CrashThreshold is the number of unexpected exits within the
	// window above which the session is disabled.
	CrashThreshold int `yaml:"crash_threshold"`

	// RestartDelay is the pause before an automatic restart.
	RestartDelay time.Duration `yaml:"restart_delay"`

	// StartupTimeout is the grace period for the first well-formed
	// object after a spawn; expiry reports an error without killing
	// the process.
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	// KillGrace is how long a graceful terminate may take before the
	// supervisor escalates to an unconditional kill.
	KillGrace time.Duration `yaml:"kill_grace"`

	// MaxLineBytes caps a single decoded line.
	MaxLineBytes int `yaml:"max_line_bytes"`

	// MaxBufferBytes caps the unterminated decode buffer.
	MaxBufferBytes int `yaml:"max_buffer_bytes"`
}
