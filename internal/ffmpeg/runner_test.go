package ffmpeg

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"camreview/internal/logging"
	"camreview/internal/services"
)

type staticResolver struct {
	path string
	err  error
}

func (s staticResolver) Resolve() (string, error) { return s.path, s.err }

// writeStub installs a shell script standing in for ffmpeg. It records its
// arguments to args.txt next to itself and then runs body.
func writeStub(t *testing.T, body string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"" + argsFile + "\"\nfor a; do last=$a; done\n" + body + "\n"
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path, argsFile
}

func readArgs(t *testing.T, file string) []string {
	t.Helper()
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestPreviewFramesArgs(t *testing.T) {
	stub, argsFile := writeStub(t, `dir=$(dirname "$last"); touch "$dir/frame_001.jpg" "$dir/frame_002.jpg"`)
	runner := NewRunner(staticResolver{path: stub}, time.Minute, logging.NewNop())
	out := t.TempDir()

	if err := runner.PreviewFrames(context.Background(), "/media/clip.mp4", filepath.Join(out, "frame_%03d.jpg"), 2, 24); err != nil {
		t.Fatalf("PreviewFrames: %v", err)
	}
	args := strings.Join(readArgs(t, argsFile), " ")
	for _, want := range []string{"-i /media/clip.mp4", "-vf fps=2,scale=640:-1:flags=lanczos", "-frames:v 24"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in args %q", want, args)
		}
	}
	if _, err := os.Stat(filepath.Join(out, "frame_002.jpg")); err != nil {
		t.Fatalf("expected stub to write frames: %v", err)
	}
}

func TestTranscodeArgs(t *testing.T) {
	stub, argsFile := writeStub(t, `echo mp4 > "$last"`)
	runner := NewRunner(staticResolver{path: stub}, 0, nil)
	if runner.Timeout() != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", runner.Timeout())
	}
	dest := filepath.Join(t.TempDir(), "clip.mp4.partial")

	if err := runner.Transcode(context.Background(), "/media/clip.mov", dest); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	args := readArgs(t, argsFile)
	if args[len(args)-1] != dest {
		t.Fatalf("expected destination last, got %v", args)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"-c:v libx264", "-profile:v baseline", "-level 3.0", "-pix_fmt yuv420p", "-crf 28", "-an", "-movflags +faststart", "-f mp4"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestRunNonZeroExit(t *testing.T) {
	stub, _ := writeStub(t, `echo "bad input" >&2; exit 1`)
	runner := NewRunner(staticResolver{path: stub}, time.Minute, logging.NewNop())

	err := runner.Transcode(context.Background(), "/media/clip.mov", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrProcessingFailed) {
		t.Fatalf("expected ErrProcessingFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestRunTimeout(t *testing.T) {
	stub, _ := writeStub(t, `exec sleep 5`)
	runner := NewRunner(staticResolver{path: stub}, 100*time.Millisecond, logging.NewNop())

	err := runner.Transcode(context.Background(), "/media/clip.mov", filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, services.ErrProcessingFailed) {
		t.Fatalf("expected ErrProcessingFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout detail, got %v", err)
	}
}

func TestMissingBinary(t *testing.T) {
	missing := services.Wrap(services.ErrToolUnavailable, "deps", "resolve ffmpeg", "not found", nil)
	runner := NewRunner(staticResolver{err: missing}, time.Minute, logging.NewNop())
	if err := runner.Available(); !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
	err := runner.PreviewFrames(context.Background(), "a.mp4", "frame_%03d.jpg", 2, 24)
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
	var nilRunner *Runner
	if err := nilRunner.Available(); !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected nil runner to be unavailable, got %v", err)
	}
}

func TestPreviewFramesRejectsInvalidSettings(t *testing.T) {
	runner := NewRunner(staticResolver{path: "/bin/true"}, time.Minute, logging.NewNop())
	if err := runner.PreviewFrames(context.Background(), "a.mp4", "p", 0, 24); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
