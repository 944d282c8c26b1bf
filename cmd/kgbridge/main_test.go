package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	configYAML := `
service:
  name: kgbridge-test
agent:
  mode: mock
  mock_command: /bin/cat
api:
  enabled: true
  listen: 127.0.0.1:18750
  auth:
    api_key: test-key
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath
}

func TestConfigCheckValidConfig(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigCheck() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Config OK") {
		t.Errorf("stdout missing Config OK: %s", stdout)
	}
	if !strings.Contains(stdout, "not locked") {
		t.Errorf("stdout missing unlocked notice: %s", stdout)
	}
}

func TestConfigLockThenCheck(t *testing.T) {
	configPath := writeTestConfig(t)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigLock() code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Locked:") {
		t.Errorf("stdout missing Locked: %s", stdout)
	}

	code, stdout, _ = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("runConfigCheck() after lock code = %d", code)
	}
	if !strings.Contains(stdout, "locked and verified") {
		t.Errorf("stdout missing verified notice: %s", stdout)
	}
}

func TestConfigCheckDetectsTamper(t *testing.T) {
	configPath := writeTestConfig(t)

	if code, _, _ := captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath})
	}); code != 0 {
		t.Fatal("lock failed")
	}

	f, err := os.OpenFile(configPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("\n# tampered\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code == 0 {
		t.Fatal("runConfigCheck() accepted a tampered config")
	}
	if !strings.Contains(stderr, "Integrity check FAILED") {
		t.Errorf("stderr missing integrity failure: %s", stderr)
	}
}

func TestConfigCheckRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("agent:\n  mode: bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code == 0 {
		t.Fatal("runConfigCheck() accepted an invalid config")
	}
	if !strings.Contains(stderr, "Failed to load config") {
		t.Errorf("stderr missing load failure: %s", stderr)
	}
}

func TestAgentNounUsageWithoutAction(t *testing.T) {
	code, stdout, _ := captureOutputWithExitCode(t, func() int {
		return runAgentNoun(nil)
	})
	if code != 1 {
		t.Errorf("runAgentNoun(nil) code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "agent send") {
		t.Errorf("usage missing agent send: %s", stdout)
	}
}

func TestAgentSendRequiresText(t *testing.T) {
	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runAgentSend(nil)
	})
	if code != 1 {
		t.Errorf("runAgentSend(nil) code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr missing usage: %s", stderr)
	}
}
