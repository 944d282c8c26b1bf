package storage

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateFilesystemAllowsLocalDisk(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "bridge.db")
	err := validateSQLiteFilesystemWithDetector(dbPath, func(string) (string, error) {
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("local filesystem should pass: %v", err)
	}
}

func TestValidateFilesystemRejectsNetworkMount(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "bridge.db")
	err := validateSQLiteFilesystemWithDetector(dbPath, func(string) (string, error) {
		return "nfs", nil
	})
	if err == nil {
		t.Fatal("expected network filesystem to be rejected")
	}
	for _, want := range []string{"nfs", "local filesystem", "state.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestValidateFilesystemInspectsNearestExistingAncestor(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "data", "deep", "bridge.db")

	var inspected string
	err := validateSQLiteFilesystemWithDetector(dbPath, func(path string) (string, error) {
		inspected = path
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("local filesystem should pass: %v", err)
	}
	if inspected != root {
		t.Fatalf("detector inspected %q, want nearest existing ancestor %q", inspected, root)
	}
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fs   string
		want bool
	}{
		{"nfs", true},
		{"CIFS", true},
		{" smb2 ", true},
		{"ext4", false},
		{"0x6969", false},
	}
	for _, tc := range cases {
		if got := isNetworkFilesystem(tc.fs); got != tc.want {
			t.Errorf("isNetworkFilesystem(%q)=%v, want %v", tc.fs, got, tc.want)
		}
	}
}
