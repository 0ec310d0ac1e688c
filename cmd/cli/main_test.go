package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/RouteDB"
	"github.com/nickyhof/RouteDB/config"
	"github.com/nickyhof/RouteDB/router"
)

func setupTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	instance, err := RouteDB.Open(context.Background(), nil)
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Close() })

	var buf bytes.Buffer
	cli := NewCLI(instance, &buf)
	cli.historyFile = ""
	return cli, &buf
}

func TestCLIExecuteBatch(t *testing.T) {
	cli, buf := setupTestCLI(t)

	cli.Execute(context.Background(), `
		CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT) ENGINE = sessionStorage;
		INSERT INTO users (id, name) VALUES (1, 'Alice'), (2, 'Bob');
		SELECT name FROM users ORDER BY id;
	`)

	out := buf.String()
	for _, want := range []string{"✓ CREATE TABLE", "✓ 2 row(s) inserted", "Alice", "Bob", "2 row(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	if owner, _ := cli.instance.Router().Owner("users"); owner != "sessionStorage" {
		t.Errorf("Expected users on sessionStorage, got %q", owner)
	}
}

func TestCLIExecuteShowsPosition(t *testing.T) {
	cli, buf := setupTestCLI(t)

	cli.Execute(context.Background(), "CREATE TABLE a; CREATE TABLE b ENGINE = indexedDB")

	out := buf.String()
	if !strings.Contains(out, "statement 2") || !strings.Contains(out, "indexedDB") {
		t.Errorf("Expected positioned unknown engine error, got:\n%s", out)
	}
	if !strings.Contains(out, "at: CREATE TABLE b") {
		t.Errorf("Expected failing statement text, got:\n%s", out)
	}
}

func TestCLIDotCommands(t *testing.T) {
	cli, buf := setupTestCLI(t)
	ctx := context.Background()

	cli.Execute(ctx, "CREATE TABLE Local ENGINE = localStorage; CREATE TABLE Plain")
	buf.Reset()

	if cli.handleCommand(ctx, ".tables") {
		t.Fatal(".tables should not quit")
	}
	out := buf.String()
	if !strings.Contains(out, "Local") || !strings.Contains(out, "localStorage") || !strings.Contains(out, "memory") {
		t.Errorf("Expected tables with owners, got:\n%s", out)
	}

	buf.Reset()
	cli.handleCommand(ctx, ".engines")
	for _, name := range []string{"localStorage", "memory", "sessionStorage"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("Expected engine %s to be listed, got:\n%s", name, buf.String())
		}
	}

	buf.Reset()
	cli.handleCommand(ctx, ".default localStorage")
	if !strings.Contains(buf.String(), "Default engine: localStorage") {
		t.Errorf("Expected default switch confirmation, got:\n%s", buf.String())
	}
	cli.Execute(ctx, "CREATE TABLE Later")
	if owner, _ := cli.instance.Router().Owner("Later"); owner != "localStorage" {
		t.Errorf("Expected Later on localStorage, got %q", owner)
	}

	buf.Reset()
	cli.handleCommand(ctx, ".default indexedDB")
	if !strings.Contains(buf.String(), "indexedDB") || !strings.Contains(buf.String(), "✗") {
		t.Errorf("Expected unknown engine error, got:\n%s", buf.String())
	}

	buf.Reset()
	cli.handleCommand(ctx, ".bogus")
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Errorf("Expected unknown command message, got:\n%s", buf.String())
	}

	if !cli.handleCommand(ctx, ".quit") {
		t.Error(".quit should quit")
	}
}

func TestCLIImport(t *testing.T) {
	cli, buf := setupTestCLI(t)

	path := filepath.Join(t.TempDir(), "seed.sql")
	script := "CREATE TABLE t (id INTEGER);\nINSERT INTO t VALUES (1), (2);\nSELECT * FROM t;\n"
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	cli.handleCommand(context.Background(), ".import "+path)

	out := buf.String()
	for _, want := range []string{"[1] ✓ CREATE TABLE t", "(2 inserted)", "(2 rows)", "3 statement(s) executed"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRunScriptExport(t *testing.T) {
	cli, buf := setupTestCLI(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "seed.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE t (id INTEGER); INSERT INTO t VALUES (7); SELECT id FROM t"), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	export := filepath.Join(dir, "out.json")
	err := runScript(context.Background(), cli.instance, path, runOptions{export: export}, buf)
	if err != nil {
		t.Fatalf("runScript failed: %v", err)
	}

	data, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if !strings.Contains(string(data), `"type": "SELECT"`) || !strings.Contains(string(data), `"id": 7`) {
		t.Errorf("Unexpected export:\n%s", data)
	}
}

func TestRunScriptFailureLeavesEarlierStatements(t *testing.T) {
	cli, buf := setupTestCLI(t)

	path := filepath.Join(t.TempDir(), "bad.sql")
	if err := os.WriteFile(path, []byte("CREATE TABLE t; CREATE TABLE u ENGINE = nowhere"), 0644); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := runScript(context.Background(), cli.instance, path, runOptions{}, buf); err == nil {
		t.Fatal("Expected the script to fail")
	}
	if !strings.Contains(buf.String(), "✗") {
		t.Errorf("Expected an error line, got:\n%s", buf.String())
	}
	if _, ok := cli.instance.Router().Owner("t"); !ok {
		t.Error("Expected t to stay created after the failure")
	}
}

func TestRenderPayload(t *testing.T) {
	var buf bytes.Buffer

	renderPayload(&buf, router.Select{
		Labels: []string{"id", "name"},
		Rows:   []router.Row{{{Key: "id", Value: int64(1)}, {Key: "name", Value: nil}}},
	})
	out := buf.String()
	if !strings.Contains(out, "| id | name |") || !strings.Contains(out, "NULL") {
		t.Errorf("Unexpected select rendering:\n%s", out)
	}

	buf.Reset()
	renderPayload(&buf, router.ShowVersion{Version: "1.0.0"})
	if strings.TrimSpace(buf.String()) != "1.0.0" {
		t.Errorf("Unexpected version rendering: %q", buf.String())
	}

	buf.Reset()
	renderPayload(&buf, router.DropTable{})
	if !strings.Contains(buf.String(), "✓ DROP TABLE") {
		t.Errorf("Unexpected drop rendering: %q", buf.String())
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory("SELECT * FROM test;")
	cli.addToHistory("INSERT INTO test VALUES (1);")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	// Adding duplicate of last command should not increase count
	cli.addToHistory("INSERT INTO test VALUES (1);")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	for i := 0; i < maxHistory+100; i++ {
		cli.addToHistory(strings.Repeat("x", i+1))
	}
	if len(cli.history) != maxHistory {
		t.Errorf("Expected history capped at %d, got %d", maxHistory, len(cli.history))
	}
}

func TestCLIHistoryFileRoundTrip(t *testing.T) {
	cli, _ := setupTestCLI(t)
	cli.historyFile = filepath.Join(t.TempDir(), "history")

	cli.addToHistory("SELECT *\nFROM t;")
	cli.saveHistory()

	reloaded, _ := setupTestCLI(t)
	reloaded.historyFile = cli.historyFile
	reloaded.loadHistory()
	if len(reloaded.history) != 1 || reloaded.history[0] != "SELECT * FROM t;" {
		t.Errorf("Unexpected history after reload: %q", reloaded.history)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is..."},
		{"SELECT *\n  FROM t", 20, "SELECT * FROM t"},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.max); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"config", "init"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "routedb.yaml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}
	if cfg.Default != config.Default().Default || len(cfg.Engines) != len(config.Default().Engines) {
		t.Errorf("Unexpected generated config: %+v", cfg)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routedb.yaml")
	if err := os.WriteFile(path, []byte("default: memory\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--out", path})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected config init to refuse an existing file")
	}
}
