package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"camreview/internal/logging"
	"camreview/internal/services"
)

// DefaultTimeout bounds a single ffmpeg run when no timeout is configured.
const DefaultTimeout = 10 * time.Minute

var commandContext = exec.CommandContext

// Resolver returns the ffmpeg binary path.
type Resolver interface {
	Resolve() (string, error)
}

// Runner executes ffmpeg with a per-call timeout.
type Runner struct {
	resolver Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRunner constructs a runner. A non-positive timeout selects DefaultTimeout.
func NewRunner(resolver Resolver, timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		resolver: resolver,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "ffmpeg"),
	}
}

// Available reports whether the ffmpeg binary can be resolved.
func (r *Runner) Available() error {
	_, err := r.binary()
	return err
}

// Timeout returns the per-call limit.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// PreviewFrames samples at most maxFrames JPEG frames at fps from src, written
// to files matching pattern (a printf-style path such as frame_%03d.jpg).
func (r *Runner) PreviewFrames(ctx context.Context, src, pattern string, fps, maxFrames int) error {
	if fps <= 0 || maxFrames <= 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "preview frames",
			fmt.Sprintf("invalid fps %d or max frames %d", fps, maxFrames), nil)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vf", fmt.Sprintf("fps=%d,scale=640:-1:flags=lanczos", fps),
		"-frames:v", strconv.Itoa(maxFrames),
		pattern,
	}
	return r.run(ctx, "preview frames", args)
}

// Transcode converts src into a baseline-profile H.264 MP4 at dest without audio.
func (r *Runner) Transcode(ctx context.Context, src, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vf", "scale=1280:-2:flags=lanczos",
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.0",
		"-pix_fmt", "yuv420p",
		"-preset", "veryfast",
		"-crf", "28",
		"-an",
		"-movflags", "+faststart",
		// dest may carry a temporary suffix, so the muxer is named explicitly
		"-f", "mp4",
		dest,
	}
	return r.run(ctx, "transcode", args)
}

func (r *Runner) binary() (string, error) {
	if r == nil || r.resolver == nil {
		return "", services.Wrap(services.ErrToolUnavailable, "ffmpeg", "resolve", "no resolver configured", nil)
	}
	return r.resolver.Resolve()
}

func (r *Runner) run(ctx context.Context, op string, args []string) error {
	binary, err := r.binary()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	started := time.Now()
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %s", r.timeout)
		}
		r.logger.Warn("ffmpeg run failed",
			logging.String(logging.FieldEventType, "ffmpeg_failed"),
			logging.String("operation", op),
			logging.String(logging.FieldErrorHint, detail),
			logging.Error(err))
		return services.Wrap(services.ErrProcessingFailed, "ffmpeg", op, detail, err)
	}
	r.logger.Debug("ffmpeg run complete",
		logging.String("operation", op),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}
