package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: kgbridge\n"), 0o644))

	require.NoError(t, WriteChecksums(path))

	locked, err := VerifyChecksums(path)
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestChecksumDetectsTamper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: kgbridge\n"), 0o644))
	require.NoError(t, WriteChecksums(path))

	require.NoError(t, os.WriteFile(path, []byte("service:\n  name: tampered\n"), 0o644))

	locked, err := VerifyChecksums(path)
	assert.True(t, locked)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash mismatch")
}

func TestChecksumUnlockedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service: {}\n"), 0o644))

	locked, err := VerifyChecksums(path)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestComputeBlake3HashStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	first, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	second, err := ComputeBlake3Hash(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}
