package deps

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"camreview/internal/logging"
	"camreview/internal/services"
)

// FFmpegEnv names the environment variable consulted after the configured path.
const FFmpegEnv = "FFMPEG_PATH"

// commonFFmpegLocations lists install locations probed before PATH.
var commonFFmpegLocations = []string{
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
	"/usr/bin/ffmpeg",
	"/opt/local/bin/ffmpeg",
	`C:\ffmpeg\bin\ffmpeg.exe`,
	`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
}

// FFmpegResolver locates the ffmpeg binary once per process.
//
// Lookup order is the configured path, FFMPEG_PATH, the common install
// locations, then PATH. The first executable candidate wins. A failed lookup is
// cached as well and only warned about once.
type FFmpegResolver struct {
	configured string
	logger     *slog.Logger
	locations  []string
	getenv     func(string) string

	once   sync.Once
	path   string
	source string
	err    error
}

// NewFFmpegResolver builds a resolver that prefers configured when non-empty.
func NewFFmpegResolver(configured string, logger *slog.Logger) *FFmpegResolver {
	return &FFmpegResolver{
		configured: strings.TrimSpace(configured),
		logger:     logging.NewComponentLogger(logger, "deps"),
		locations:  commonFFmpegLocations,
		getenv:     os.Getenv,
	}
}

// Resolve returns the ffmpeg path or an ErrToolUnavailable error.
func (r *FFmpegResolver) Resolve() (string, error) {
	if r == nil {
		return "", services.Wrap(services.ErrToolUnavailable, "deps", "resolve ffmpeg", "resolver not configured", nil)
	}
	r.once.Do(r.resolve)
	return r.path, r.err
}

// Status reports the resolution outcome for status output.
func (r *FFmpegResolver) Status() Status {
	status := Status{
		Name:        "FFmpeg",
		Command:     "ffmpeg",
		Description: "Generates preview frames and mobile transcodes",
		Optional:    true,
	}
	path, err := r.Resolve()
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = path
	status.Available = true
	if r.source != "" {
		status.Detail = "resolved from " + r.source
	}
	return status
}

func (r *FFmpegResolver) resolve() {
	type candidate struct {
		path   string
		source string
	}
	candidates := make([]candidate, 0, len(r.locations)+2)
	if r.configured != "" {
		candidates = append(candidates, candidate{r.configured, "config"})
	}
	if env := strings.TrimSpace(r.getenv(FFmpegEnv)); env != "" {
		candidates = append(candidates, candidate{env, FFmpegEnv})
	}
	for _, loc := range r.locations {
		candidates = append(candidates, candidate{loc, "common location"})
	}

	for _, c := range candidates {
		if resolved, ok := executableCandidate(c.path); ok {
			r.path = resolved
			r.source = c.source
			r.logger.Debug("ffmpeg resolved", logging.String("path", resolved), logging.String("source", c.source))
			return
		}
	}
	if resolved, err := exec.LookPath(executableName("ffmpeg")); err == nil {
		r.path = resolved
		r.source = "PATH"
		r.logger.Debug("ffmpeg resolved", logging.String("path", resolved), logging.String("source", "PATH"))
		return
	}

	r.err = services.Wrap(services.ErrToolUnavailable, "deps", "resolve ffmpeg",
		fmt.Sprintf("binary %q not found in config, %s, common locations, or PATH", "ffmpeg", FFmpegEnv), nil)
	logging.WarnWithContext(r.logger, "ffmpeg not found", "ffmpeg_missing",
		logging.String(logging.FieldErrorHint, "install ffmpeg or set ffmpeg.path / FFMPEG_PATH"),
		logging.String(logging.FieldImpact, "video previews and transcodes are unavailable"))
}

// executableCandidate accepts absolute or relative file paths and bare command
// names resolvable through PATH.
func executableCandidate(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}
	if !strings.ContainsRune(candidate, filepath.Separator) && !strings.Contains(candidate, "/") {
		resolved, err := exec.LookPath(candidate)
		return resolved, err == nil
	}
	info, err := os.Stat(candidate)
	if err != nil || !isExecutable(info) {
		return "", false
	}
	return candidate, true
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
