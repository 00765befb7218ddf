package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.String()
}

func TestStatsShowOnFreshStore(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	out := runCLI(t, "stats", "show", "--user", "u1", "--config", missing)

	var overview struct {
		TotalGamesPlayed int `json:"totalGamesPlayed"`
		Accuracy         int `json:"accuracy"`
	}
	if err := json.Unmarshal([]byte(out), &overview); err != nil {
		t.Fatalf("decode overview: %v\n%s", err, out)
	}
	if overview.TotalGamesPlayed != 0 || overview.Accuracy != 0 {
		t.Fatalf("expected empty overview, got %+v", overview)
	}
}

func TestStatsExportWritesWorkbook(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "u1.xlsx")
	runCLI(t, "stats", "export", "--user", "u1", "--out", target, "--config", filepath.Join(dir, "none.yaml"))

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("export is empty")
	}
}

func TestSeedMemoryStore(t *testing.T) {
	runCLI(t, "seed", "--reset", "--config", filepath.Join(t.TempDir(), "none.yaml"))
}

func TestUnknownDriverFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: cassandra\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"stats", "show", "--config", path})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
