package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"camreview/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The media root exists and is empty; file logging is disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaRoot = filepath.Join(base, "media")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "state", "ledger.json")
	cfgVal.Paths.JournalPath = filepath.Join(base, "state", "journal.db")
	cfgVal.Paths.LogDir = ""
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = ""
	if err := os.MkdirAll(cfgVal.Paths.MediaRoot, 0o755); err != nil {
		t.Fatalf("mkdir media root: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLLM points the vision client at baseURL using key.
func WithLLM(baseURL, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.APIKey = key
	}
}

// WithAPIToken requires a bearer token on /api requests.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Token = token
	}
}

// WithStubFFmpeg writes a stub ffmpeg that creates its output file and points
// the config at it. The output argument may be a frame pattern such as
// frame_%03d.jpg, in which case the first frame is written.
func WithStubFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Path = StubFFmpeg(b.t, filepath.Join(b.baseDir, "bin"))
	}
}

// WithMissingFFmpeg configures an ffmpeg path that does not exist and clears
// the environment fallbacks.
func WithMissingFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Path = filepath.Join(b.baseDir, "bin", "no-ffmpeg")
		b.t.Setenv("FFMPEG_PATH", "")
		b.t.Setenv("PATH", filepath.Join(b.baseDir, "empty-path"))
	}
}

// StubFFmpeg writes the stub ffmpeg script into dir and returns its path.
func StubFFmpeg(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := "#!/bin/sh\nfor last; do :; done\nprintf 'stub' > \"$(printf \"$last\" 1)\"\n"
	target := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub ffmpeg: %v", err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MediaRoot)
}
