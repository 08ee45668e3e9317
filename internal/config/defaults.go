package config

const (
	defaultConfigPath        = "~/.config/camreview/config.toml"
	defaultMediaRoot         = "~/trailcam"
	defaultLedgerName        = "trailcam_review.json"
	defaultJournalName       = "camreview_journal.db"
	defaultLogDir            = "~/.local/share/camreview/logs"
	defaultServerBind        = "0.0.0.0:3000"
	defaultPreviewFPS        = 2
	defaultPreviewMaxFrames  = 24
	defaultFFmpegTimeout     = 600
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "openai/gpt-4o-mini"
	defaultLLMReferer        = "http://localhost:3000"
	defaultLLMTitle          = "CamReview"
	defaultLLMTimeoutSeconds = 60
	defaultCaptureTime       = CaptureTimeFilesystem
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	maxPreviewFrames         = 240
	maxPreviewFPS            = 30
)

// Capture time sources accepted by scan.capture_time.
const (
	CaptureTimeFilesystem = "filesystem"
	CaptureTimeEXIF       = "exif"
)

// Default returns a Config populated with repository defaults. Ledger and
// journal paths are derived from the media root during normalization when
// left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot: defaultMediaRoot,
			LogDir:    defaultLogDir,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Preview: Preview{
			FPS:       defaultPreviewFPS,
			MaxFrames: defaultPreviewMaxFrames,
		},
		FFmpeg: FFmpeg{
			TimeoutSeconds: defaultFFmpegTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Scan: Scan{
			CaptureTime: defaultCaptureTime,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
