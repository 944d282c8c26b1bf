// Package agent resolves the supervised agent's command line from the
// configured execution mode. The mock mode substitutes an arbitrary
// executable so the supervisor can be exercised without the real agent
// binary.
package agent

import (
	"fmt"
	"os/exec"

	"github.com/mattjoyce/kgbridge/internal/config"
)

// Command is a resolved, ready-to-spawn command line.
type Command struct {
	Path    string
	Args    []string
	Workdir string
	Env     map[string]string
}

// Resolve maps the configured mode to an executable and argument
// vector. Production commands are looked up on PATH; development and
// mock commands are used as given (typically repo-local scripts).
func Resolve(cfg config.AgentConfig) (Command, error) {
	cmd := Command{Workdir: cfg.Workdir, Env: cfg.Env}

	switch cfg.Mode {
	case "production":
		path, err := exec.LookPath(cfg.Command)
		if err != nil {
			return Command{}, fmt.Errorf("agent command %q not found: %w", cfg.Command, err)
		}
		cmd.Path = path
		cmd.Args = cfg.Args

	case "development":
		cmd.Path = cfg.DevCommand
		cmd.Args = cfg.DevArgs

	case "mock":
		cmd.Path = cfg.MockCommand
		cmd.Args = cfg.MockArgs

	default:
		return Command{}, fmt.Errorf("unknown agent mode %q", cfg.Mode)
	}

	if cmd.Path == "" {
		return Command{}, fmt.Errorf("agent mode %q resolved to an empty command", cfg.Mode)
	}
	return cmd, nil
}
