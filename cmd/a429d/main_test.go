package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "defaultLayout: bnr-generic\ndictionary: labels.json\n")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Port != 8080 {
		t.Fatalf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Dictionary != filepath.Join(base, "labels.json") {
		t.Fatalf("Dictionary = %s", cfg.Dictionary)
	}
	if cfg.StorageDir != filepath.Join(base, "data") {
		t.Fatalf("StorageDir = %s", cfg.StorageDir)
	}
	if cfg.Logs.Directory != filepath.Join(base, "data", "logs") || cfg.Logs.MaxSizeMB != 25 || cfg.Logs.FileName != "a429d.log" {
		t.Fatalf("Logs = %+v", cfg.Logs)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `port: 9090
storageDir: /var/lib/a429
logs:
  directory: /var/log/a429
  maxSizeMB: 5
  compress: true
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != 9090 || cfg.StorageDir != "/var/lib/a429" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Logs.Directory != "/var/log/a429" || cfg.Logs.MaxSizeMB != 5 || !cfg.Logs.Compress || cfg.Logs.MaxBackups != 5 {
		t.Fatalf("Logs = %+v", cfg.Logs)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown layout", body: "defaultLayout: nope\n", want: "not in catalog"},
		{name: "bad port", body: "port: 70000\n", want: "out of range"},
		{name: "unknown key", body: "profiles: []\n", want: "profiles"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
