// Package main provides tests for the drive-to-gong CLI application
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Reset global flag state between runs
	configFile = ""
	verbose = false
	dryRun = false
	limit = 0

	cmd := buildRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHelpOutput(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !strings.Contains(output, "drive-to-gong moves recorded-meeting bundles") {
		t.Errorf("Expected long description in help output, got %q", output)
	}
	for _, sub := range []string{"run", "list-files", "list-users", "version", "config"} {
		if !strings.Contains(output, sub) {
			t.Errorf("Expected subcommand %q in help output", sub)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !strings.Contains(output, "drive-to-gong version dev") {
		t.Errorf("Expected version output, got %q", output)
	}
	if !strings.Contains(output, "Commit: unknown") {
		t.Errorf("Expected commit info, got %q", output)
	}
}

func TestConfigCommand(t *testing.T) {
	output, err := execute(t, "config")
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	for _, section := range []string{"gong:", "drive:", "pipeline:", "GONG_KEY", "GOOGLE_FOLDER_ID"} {
		if !strings.Contains(output, section) {
			t.Errorf("Expected config help to mention %q", section)
		}
	}
}

func TestNegativeLimitRejected(t *testing.T) {
	_, err := execute(t, "version", "--limit", "-1")
	if err == nil {
		t.Fatal("Expected error for negative limit")
	}
	if !strings.Contains(err.Error(), "limit must be a positive number") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestRunFailsWithoutConfig(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(cwd) })

	// Ensure env credentials from the host cannot satisfy validation
	t.Setenv("GONG_KEY", "")
	t.Setenv("GONG_SECRET", "")

	_, err = execute(t, "run")
	if err == nil {
		t.Fatal("Expected error when config.yaml is absent")
	}
}

func TestDryRunListsPendingWithoutGong(t *testing.T) {
	dir := t.TempDir()

	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatalf("failed to create data dir: %v", err)
	}
	universe := "title,mimeType,id\nWeekly Sync.zip,application/zip,f1\nRetro.zip,application/zip,f2\n"
	if err := os.WriteFile(filepath.Join(dataDir, "file_list.csv"), []byte(universe), 0644); err != nil {
		t.Fatalf("failed to write universe: %v", err)
	}
	// f2 already completed; only f1 should be pending
	completed := "id,title,call_id,url,participant_names\nf2,Retro.zip,c1,u,\n"
	if err := os.WriteFile(filepath.Join(dataDir, "completed_list.csv"), []byte(completed), 0644); err != nil {
		t.Fatalf("failed to write completed ledger: %v", err)
	}

	configYAML := `
gong:
  base_url: "https://api.gong.io"
  access_key: "key"
  access_secret: "secret"
pipeline:
  data_dir: "` + dataDir + `"
  work_dir: "` + filepath.Join(dir, "dest") + `"
logging:
  level: "error"
  file: "` + filepath.Join(dir, "test.log") + `"
`
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	output, err := execute(t, "run", "--config", configPath, "--dry-run")
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}
	if !strings.Contains(output, "f1") {
		t.Errorf("Expected pending entry f1 in output, got %q", output)
	}
	if strings.Contains(output, "f2") {
		t.Errorf("Completed entry f2 must not be listed, got %q", output)
	}
	if !strings.Contains(output, "1 recordings would be migrated") {
		t.Errorf("Expected dry-run count line, got %q", output)
	}
}
