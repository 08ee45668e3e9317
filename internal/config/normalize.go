package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizePreview()
	if err := c.normalizeFFmpeg(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeScan()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("CAMREVIEW_DATA_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.MediaRoot = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		c.Paths.MediaRoot = defaultMediaRoot
	}
	if c.Paths.MediaRoot, err = expandPath(c.Paths.MediaRoot); err != nil {
		return fmt.Errorf("paths.media_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = filepath.Join(c.Paths.MediaRoot, defaultLedgerName)
	}
	if c.Paths.LedgerPath, err = expandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalPath) == "" {
		c.Paths.JournalPath = filepath.Join(c.Paths.MediaRoot, ".camreview", defaultJournalName)
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if value, ok := os.LookupEnv("CAMREVIEW_API_TOKEN"); ok {
		c.Server.Token = value
	}
	c.Server.Token = strings.TrimSpace(c.Server.Token)
}

func (c *Config) normalizePreview() {
	if c.Preview.FPS <= 0 {
		c.Preview.FPS = defaultPreviewFPS
	}
	if c.Preview.MaxFrames <= 0 {
		c.Preview.MaxFrames = defaultPreviewMaxFrames
	}
}

func (c *Config) normalizeFFmpeg() error {
	c.FFmpeg.Path = strings.TrimSpace(c.FFmpeg.Path)
	if c.FFmpeg.Path != "" && strings.ContainsRune(c.FFmpeg.Path, os.PathSeparator) {
		expanded, err := expandPath(c.FFmpeg.Path)
		if err != nil {
			return fmt.Errorf("ffmpeg.path: %w", err)
		}
		c.FFmpeg.Path = expanded
	}
	if c.FFmpeg.TimeoutSeconds <= 0 {
		c.FFmpeg.TimeoutSeconds = defaultFFmpegTimeout
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.LLM.APIKey = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENROUTER_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Model = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENROUTER_ENDPOINT"); ok && strings.TrimSpace(value) != "" {
		c.LLM.BaseURL = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("OPENROUTER_REFERRER"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Referer = strings.TrimSpace(value)
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeScan() {
	c.Scan.CaptureTime = strings.ToLower(strings.TrimSpace(c.Scan.CaptureTime))
	if c.Scan.CaptureTime == "" {
		c.Scan.CaptureTime = defaultCaptureTime
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
