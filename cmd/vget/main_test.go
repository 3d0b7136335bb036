package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vget/internal/history"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	historyDB  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	historyDB := filepath.Join(base, "history.db")
	configPath := filepath.Join(base, "config.toml")

	doc := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q
history_db = %q

[tools]
cache_dir = %q
`,
		filepath.Join(base, "downloads"),
		filepath.Join(base, "logs"),
		historyDB,
		filepath.Join(base, "tools"),
	)
	if err := os.WriteFile(configPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		historyDB:  historyDB,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = []string{"--config", configPath}
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func seedHistory(t *testing.T, env *cliTestEnv, entries ...history.Entry) {
	t.Helper()
	store, err := history.Open(env.historyDB)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	for _, entry := range entries {
		if _, err := store.Record(context.Background(), entry); err != nil {
			t.Fatalf("seed history: %v", err)
		}
	}
}

func TestCLIHistoryListAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	seedHistory(t, env,
		history.Entry{BatchID: "b1", URL: "https://example.com/one", FilePath: "/out/One [x1].mp4", Status: history.StatusCompleted, Bytes: 4096},
		history.Entry{BatchID: "b1", URL: "https://example.com/two", Status: history.StatusFailed, Detail: "ERROR: nope"},
	)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "https://example.com/one")
	requireContains(t, out, "completed")
	requireContains(t, out, "failed")

	_, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err == nil {
		t.Fatal("history clear without --all should fail")
	}

	out, _, err = runCLI(t, []string{"history", "clear", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear --all: %v", err)
	}
	requireContains(t, out, "Cleared 2 entries")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	requireContains(t, out, "History is empty")
}

func TestCLIHistoryListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "History is empty")
}

func TestCLIToolsStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"tools", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("tools status: %v", err)
	}
	requireContains(t, out, "yt-dlp")
	requireContains(t, out, "ffmpeg")
}

func TestCLIGetRequiresURLs(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"get"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no URLs") {
		t.Fatalf("expected missing-URL error, got %v", err)
	}
}
