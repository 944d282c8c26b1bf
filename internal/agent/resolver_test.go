package agent

import (
	"testing"

	"github.com/mattjoyce/kgbridge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProductionLooksUpPath(t *testing.T) {
	cmd, err := Resolve(config.AgentConfig{
		Mode:    "production",
		Command: "sh",
		Args:    []string{"-c", "true"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.Path)
	assert.Equal(t, []string{"-c", "true"}, cmd.Args)
}

func TestResolveProductionMissingBinary(t *testing.T) {
	_, err := Resolve(config.AgentConfig{
		Mode:    "production",
		Command: "kgbridge-does-not-exist-anywhere",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestResolveMock(t *testing.T) {
	cmd, err := Resolve(config.AgentConfig{
		Mode:        "mock",
		MockCommand: "/tmp/mock-agent.sh",
		MockArgs:    []string{"--fast"},
		Workdir:     "/tmp",
		Env:         map[string]string{"MOCK": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mock-agent.sh", cmd.Path)
	assert.Equal(t, []string{"--fast"}, cmd.Args)
	assert.Equal(t, "/tmp", cmd.Workdir)
	assert.Equal(t, "1", cmd.Env["MOCK"])
}

func TestResolveDevelopment(t *testing.T) {
	cmd, err := Resolve(config.AgentConfig{
		Mode:       "development",
		DevCommand: "./scripts/kg-agent-dev.sh",
	})
	require.NoError(t, err)
	assert.Equal(t, "./scripts/kg-agent-dev.sh", cmd.Path)
}

func TestResolveUnknownMode(t *testing.T) {
	_, err := Resolve(config.AgentConfig{Mode: "staging"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent mode")
}

func TestResolveEmptyCommand(t *testing.T) {
	_, err := Resolve(config.AgentConfig{Mode: "mock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty command")
}
