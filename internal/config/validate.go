package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validatePreview(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("paths.media_root is required. Set CAMREVIEW_DATA_PATH or edit %s (create with 'camreview config init')", defaultPath)
	}
	if filepath.Clean(c.Paths.LedgerPath) == filepath.Clean(c.Paths.MediaRoot) {
		return errors.New("paths.ledger_path must name a file, not the media root")
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	return nil
}

func (c *Config) validatePreview() error {
	if c.Preview.FPS > maxPreviewFPS {
		return fmt.Errorf("preview.fps must be <= %d", maxPreviewFPS)
	}
	if c.Preview.MaxFrames > maxPreviewFrames {
		return fmt.Errorf("preview.max_frames must be <= %d", maxPreviewFrames)
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url %q must be an absolute URL", c.LLM.BaseURL)
	}
	return nil
}

func (c *Config) validateScan() error {
	switch c.Scan.CaptureTime {
	case CaptureTimeFilesystem, CaptureTimeEXIF:
		return nil
	default:
		return fmt.Errorf("scan.capture_time must be %q or %q", CaptureTimeFilesystem, CaptureTimeEXIF)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
}
