package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 8089 {
		t.Errorf("defaults = %s:%d", cfg.Host, cfg.Port)
	}
	if filepath.Base(cfg.DataDir) != ".daylog" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if filepath.Base(cfg.DBPath) != "journal.db" {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYLOG_DATA_DIR", dir)
	t.Setenv("DAYLOG_IMPORT_DIR", "")
	t.Setenv("OPENAI_API_KEY", "")

	file := map[string]string{
		"import_dir":     "/from/file",
		"openai_api_key": "file-key",
		"openai_model":   "gpt-4o",
	}
	data, _ := json.Marshal(file)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadMinimal()
	if err != nil {
		t.Fatalf("LoadMinimal: %v", err)
	}
	if cfg.ImportDir != "/from/file" {
		t.Errorf("ImportDir = %s, want /from/file", cfg.ImportDir)
	}
	if cfg.OpenAIKey != "file-key" || cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAI config = %q / %q", cfg.OpenAIKey, cfg.OpenAIModel)
	}
	if cfg.DBPath != filepath.Join(dir, "journal.db") {
		t.Errorf("DBPath = %s", cfg.DBPath)
	}

	// Env overrides the file.
	t.Setenv("DAYLOG_IMPORT_DIR", "/from/env")
	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err = LoadMinimal()
	if err != nil {
		t.Fatalf("LoadMinimal: %v", err)
	}
	if cfg.ImportDir != "/from/env" {
		t.Errorf("ImportDir = %s, want /from/env", cfg.ImportDir)
	}
	if cfg.OpenAIKey != "env-key" {
		t.Errorf("OpenAIKey = %s, want env-key", cfg.OpenAIKey)
	}
}

func TestLoadFlagsOverrideAll(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYLOG_DATA_DIR", dir)
	t.Setenv("DAYLOG_IMPORT_DIR", "/from/env")

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	RegisterServeFlags(fs)
	err := fs.Parse([]string{"-port", "9000", "-import-dir", "/from/flag"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.ImportDir != "/from/flag" {
		t.Errorf("ImportDir = %s, want /from/flag", cfg.ImportDir)
	}
	// Unset flags keep the lower layers.
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s", cfg.Host)
	}
}

func TestUnsetFlagsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYLOG_DATA_DIR", dir)
	t.Setenv("DAYLOG_IMPORT_DIR", "/from/env")

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	RegisterServeFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Registered default matches, but the flag was never set, so
	// the env layer must survive.
	if cfg.ImportDir != "/from/env" {
		t.Errorf("ImportDir = %s, want /from/env", cfg.ImportDir)
	}
}

func TestSaveOpenAIKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DAYLOG_DATA_DIR", dir)
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := LoadMinimal()
	if err != nil {
		t.Fatalf("LoadMinimal: %v", err)
	}
	if err := cfg.SaveBrowserCmd("firefox --new-tab"); err != nil {
		t.Fatalf("SaveBrowserCmd: %v", err)
	}
	if err := cfg.SaveOpenAIKey("sk-test"); err != nil {
		t.Fatalf("SaveOpenAIKey: %v", err)
	}
	if cfg.OpenAIKey != "sk-test" {
		t.Errorf("OpenAIKey = %s", cfg.OpenAIKey)
	}

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config.json mode = %o, want 600", perm)
	}

	// Saving one key must not clobber the other.
	reloaded, err := LoadMinimal()
	if err != nil {
		t.Fatalf("LoadMinimal: %v", err)
	}
	if reloaded.OpenAIKey != "sk-test" {
		t.Errorf("reloaded OpenAIKey = %s", reloaded.OpenAIKey)
	}
	if reloaded.BrowserCmd != "firefox --new-tab" {
		t.Errorf("reloaded BrowserCmd = %s", reloaded.BrowserCmd)
	}
}
