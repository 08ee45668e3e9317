package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"camreview/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CAMREVIEW_CONFIG_PATH",
		"CAMREVIEW_DATA_PATH",
		"OPENROUTER_API_KEY",
		"OPENROUTER_MODEL",
		"OPENROUTER_ENDPOINT",
		"OPENROUTER_REFERRER",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "camreview", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantRoot := filepath.Join(tempHome, "trailcam")
	if cfg.Paths.MediaRoot != wantRoot {
		t.Fatalf("unexpected media root: got %q want %q", cfg.Paths.MediaRoot, wantRoot)
	}
	if cfg.Paths.LedgerPath != filepath.Join(wantRoot, "trailcam_review.json") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Paths.JournalPath != filepath.Join(wantRoot, ".camreview", "camreview_journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Paths.JournalPath)
	}
	if cfg.Server.Bind != "0.0.0.0:3000" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if cfg.Preview.FPS != 2 || cfg.Preview.MaxFrames != 24 {
		t.Fatalf("unexpected preview defaults: %+v", cfg.Preview)
	}
	if cfg.FFmpegTimeout().Minutes() != 10 {
		t.Fatalf("unexpected ffmpeg timeout: %s", cfg.FFmpegTimeout())
	}
	if cfg.LLM.Model != "openai/gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.LLMConfigured() {
		t.Fatal("expected LLM to be unconfigured without a key")
	}
	if cfg.Scan.CaptureTime != config.CaptureTimeFilesystem {
		t.Fatalf("unexpected capture time source: %q", cfg.Scan.CaptureTime)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "camreview.toml")

	type payload struct {
		Paths struct {
			MediaRoot string `toml:"media_root"`
		} `toml:"paths"`
		Preview struct {
			FPS       int `toml:"fps"`
			MaxFrames int `toml:"max_frames"`
		} `toml:"preview"`
		LLM struct {
			Model string `toml:"model"`
		} `toml:"llm"`
	}
	custom := payload{}
	custom.Paths.MediaRoot = filepath.Join(tempDir, "media")
	custom.Preview.FPS = 4
	custom.Preview.MaxFrames = 12
	custom.LLM.Model = "google/gemini-flash"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.MediaRoot != custom.Paths.MediaRoot {
		t.Fatalf("expected media root from file, got %q", cfg.Paths.MediaRoot)
	}
	if cfg.Paths.LedgerPath != filepath.Join(custom.Paths.MediaRoot, "trailcam_review.json") {
		t.Fatalf("expected ledger derived from media root, got %q", cfg.Paths.LedgerPath)
	}
	if cfg.Preview.FPS != 4 || cfg.Preview.MaxFrames != 12 {
		t.Fatalf("expected preview overrides, got %+v", cfg.Preview)
	}
	if cfg.LLM.Model != "google/gemini-flash" {
		t.Fatalf("expected model override, got %q", cfg.LLM.Model)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "camreview.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nmedia_rot = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "camreview.toml")
	contents := "[paths]\nmedia_root = \"/from/file\"\n\n[llm]\napi_key = \"file-key\"\nmodel = \"file-model\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	envRoot := filepath.Join(tempDir, "env-root")
	t.Setenv("CAMREVIEW_DATA_PATH", envRoot)
	t.Setenv("OPENROUTER_API_KEY", "env-key")
	t.Setenv("OPENROUTER_MODEL", "env-model")
	t.Setenv("OPENROUTER_ENDPOINT", "https://llm.example.com/v1/chat/completions")
	t.Setenv("OPENROUTER_REFERRER", "https://camreview.example.com")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.MediaRoot != envRoot {
		t.Errorf("expected media root from env, got %q", cfg.Paths.MediaRoot)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("expected model from env, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "https://llm.example.com/v1/chat/completions" {
		t.Errorf("expected endpoint from env, got %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Referer != "https://camreview.example.com" {
		t.Errorf("expected referer from env, got %q", cfg.LLM.Referer)
	}
}

func TestConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "elsewhere.toml")
	if err := os.WriteFile(configPath, []byte("[server]\nbind = \"127.0.0.1:4000\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CAMREVIEW_CONFIG_PATH", configPath)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected env config path, got %q (exists=%v)", resolved, exists)
	}
	if cfg.Server.Bind != "127.0.0.1:4000" {
		t.Fatalf("expected bind override, got %q", cfg.Server.Bind)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "media_root") {
		t.Fatalf("sample config missing media_root: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Preview.MaxFrames != 24 {
		t.Fatalf("expected sample max_frames 24, got %d", cfg.Preview.MaxFrames)
	}

	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.MediaRoot = root
	cfg.Paths.LedgerPath = filepath.Join(root, "state", "ledger.json")
	cfg.Paths.JournalPath = filepath.Join(root, ".camreview", "journal.db")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"state", ".camreview", "logs"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", dir, err)
		}
	}

	cfg.Paths.MediaRoot = filepath.Join(root, "missing")
	if err := cfg.EnsureDirectories(); err == nil {
		t.Fatal("expected error for missing media root")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Bind = "no-port"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bind without port")
	}

	cfg = config.Default()
	cfg.Preview.MaxFrames = 10000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for excessive frame count")
	}

	cfg = config.Default()
	cfg.LLM.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for relative base url")
	}

	cfg = config.Default()
	cfg.Scan.CaptureTime = "sundial"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown capture time source")
	}

	cfg = config.Default()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	cfg.Paths.MediaRoot = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty media root")
	}
}
