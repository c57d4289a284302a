package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvPort, EnvFormat, EnvBufLen, EnvNumBufs, EnvUDP, EnvRecord, EnvDB} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Net.Port != nil || cfg.Output.Format != nil || cfg.History.Record != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := writeFile(t, "config.toml", `
[net]
port = 6001
udp = true
buflen = 1024
nbuf = 64
sockbuf = 65536
nodelay = true

[output]
format = "M"
progress = true
verbose = true
line-width = 80

[history]
record = true
db = "/tmp/runs.db"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Net.Port != 6001 || !*cfg.Net.UDP || *cfg.Net.BufLen != 1024 || *cfg.Net.NumBufs != 64 ||
		*cfg.Net.SockBuf != 65536 || !*cfg.Net.NoDelay {
		t.Fatalf("unexpected net section: %+v", cfg.Net)
	}
	if *cfg.Output.Format != "M" || !*cfg.Output.Progress || !*cfg.Output.Verbose || *cfg.Output.LineWidth != 80 {
		t.Fatalf("unexpected output section: %+v", cfg.Output)
	}
	if cfg.Output.Speed != nil {
		t.Fatalf("expected speed to stay unset")
	}
	if !*cfg.History.Record || *cfg.History.DB != "/tmp/runs.db" {
		t.Fatalf("unexpected history section: %+v", cfg.History)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", "[net]\nprot = 1\n")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "net.prot") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeFile(t, "config.toml", "[net\n")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "failed to decode config") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLoadEnvFileAndOverride(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "bench.env", "TTCP_PORT=7001\nTTCP_FORMAT=g\nTTCP_UDP=true\nTTCP_NBUF=10\nUNRELATED=1\n")
	t.Setenv(EnvNumBufs, "20")

	cfg, err := LoadEnv(path)
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Port == nil || *cfg.Port != 7001 {
		t.Fatalf("expected port from file, got %v", cfg.Port)
	}
	if cfg.Format == nil || *cfg.Format != "g" {
		t.Fatalf("expected format from file, got %v", cfg.Format)
	}
	if cfg.UDP == nil || !*cfg.UDP {
		t.Fatalf("expected udp from file")
	}
	if cfg.NumBufs == nil || *cfg.NumBufs != 20 {
		t.Fatalf("expected process env to win, got %v", cfg.NumBufs)
	}
	if cfg.BufLen != nil || cfg.Record != nil || cfg.DB != nil {
		t.Fatalf("expected unset values to stay nil: %+v", cfg)
	}
}

func TestLoadEnvDefaultFileOptional(t *testing.T) {
	clearEnv(t)
	testChdir(t, t.TempDir())
	cfg, err := LoadEnv("")
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Port != nil {
		t.Fatalf("expected empty env config")
	}

	if err := os.WriteFile(DefaultEnvFile, []byte("TTCP_RECORD=1\nTTCP_DB=runs.db\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	cfg, err = LoadEnv("")
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Record == nil || !*cfg.Record || cfg.DB == nil || *cfg.DB != "runs.db" {
		t.Fatalf("expected values from .env, got %+v", cfg)
	}
}

func TestLoadEnvErrors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for missing explicit env file")
	}
	t.Setenv(EnvPort, "abc")
	if _, err := LoadEnv(writeFile(t, "empty.env", "")); err == nil || !strings.Contains(err.Error(), EnvPort) {
		t.Fatalf("expected invalid port error, got %v", err)
	}
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "ttcp", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "ttcp", "ttcp.db") {
		t.Fatalf("unexpected db path %q", got)
	}
}

// testChdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore cwd %s: %v", old, err)
		}
	})
}
