package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"camreview/internal/fileutil"
	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
)

// Runner is the subset of ffmpeg.Runner the service drives.
type Runner interface {
	Available() error
	PreviewFrames(ctx context.Context, src, pattern string, fps, maxFrames int) error
	Transcode(ctx context.Context, src, dest string) error
}

// PreviewSettings controls preview frame sampling.
type PreviewSettings struct {
	FPS       int
	MaxFrames int
}

// Service locates and generates derived artifacts for media keys.
type Service struct {
	root     *mediaroot.Root
	runner   Runner
	registry *Registry
	preview  PreviewSettings
	logger   *slog.Logger
}

// NewService wires a service. A nil registry gets a private one.
func NewService(root *mediaroot.Root, runner Runner, registry *Registry, preview PreviewSettings, logger *slog.Logger) *Service {
	if registry == nil {
		registry = NewRegistry(logger)
	}
	if preview.FPS <= 0 {
		preview.FPS = 2
	}
	if preview.MaxFrames <= 0 {
		preview.MaxFrames = 24
	}
	return &Service{
		root:     root,
		runner:   runner,
		registry: registry,
		preview:  preview,
		logger:   logging.NewComponentLogger(logger, "artifacts"),
	}
}

// Registry exposes the deduplicating registry.
func (s *Service) Registry() *Registry { return s.registry }

// ToolAvailable reports whether ffmpeg can be run.
func (s *Service) ToolAvailable() error {
	if s.runner == nil {
		return services.Wrap(services.ErrToolUnavailable, "artifacts", "tool", "no runner configured", nil)
	}
	return s.runner.Available()
}

// Frames lists existing preview frame keys for a video in frame order.
func (s *Service) Frames(key string) []string {
	dirKey := mediaroot.PreviewFrameDir(key)
	full, err := s.root.Resolve(dirKey)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil
	}
	frames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !mediaroot.IsFrameName(entry.Name()) {
			continue
		}
		frames = append(frames, path.Join(dirKey, entry.Name()))
	}
	sort.Strings(frames)
	return frames
}

// PreviewFrames returns the preview frame keys for a video. Non-video keys
// yield an empty list. When generate is set and no frames exist yet they are
// produced through the registry.
func (s *Service) PreviewFrames(ctx context.Context, key string, generate bool) ([]string, error) {
	if kind, _ := mediaroot.KindForKey(key); kind != mediaroot.KindVideo {
		return []string{}, nil
	}
	frames := s.Frames(key)
	if len(frames) > 0 || !generate {
		return nonNil(frames), nil
	}
	if err := s.ToolAvailable(); err != nil {
		return []string{}, err
	}
	src, err := s.source(key)
	if err != nil {
		return []string{}, err
	}
	dirFull, err := s.root.Resolve(mediaroot.PreviewFrameDir(key))
	if err != nil {
		return []string{}, err
	}

	probe := func() ([]string, bool) {
		out := s.Frames(key)
		return out, len(out) > 0
	}
	generator := func(ctx context.Context) error {
		return s.generateFrames(ctx, src, dirFull)
	}
	frames, err = s.registry.Ensure(ctx, dirFull, probe, generator)
	if err != nil {
		return []string{}, err
	}
	return nonNil(frames), nil
}

// generateFrames renders into a sibling temp directory and renames it over
// the frame directory so a partial set is never listed.
func (s *Service) generateFrames(ctx context.Context, src, dirFull string) error {
	parent := filepath.Dir(dirFull)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "preview frames", "create preview directory", err)
	}
	tmp := dirFull + ".tmp-" + uuid.NewString()
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "preview frames", "create temp directory", err)
	}
	defer os.RemoveAll(tmp)

	pattern := filepath.Join(tmp, "frame_%03d.jpg")
	if err := s.runner.PreviewFrames(ctx, src, pattern, s.preview.FPS, s.preview.MaxFrames); err != nil {
		return err
	}
	entries, err := os.ReadDir(tmp)
	if err != nil || len(entries) == 0 {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "preview frames", "ffmpeg produced no frames", err)
	}
	if err := os.RemoveAll(dirFull); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "preview frames", "clear stale frames", err)
	}
	if err := os.Rename(tmp, dirFull); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "preview frames", "publish frames", err)
	}
	s.logger.Info("preview frames generated",
		logging.String(logging.FieldPath, dirFull),
		logging.Int("frames", len(entries)))
	return nil
}

// FindPreview returns an existing preview image for key: a sidecar image in
// the preview cache or beside the source, then the first generated frame.
func (s *Service) FindPreview(key string) (string, bool) {
	for _, candidate := range mediaroot.PreviewCandidates(key) {
		full, err := s.root.Resolve(candidate)
		if err != nil {
			continue
		}
		if ok, _ := fileutil.Exists(full); ok {
			return candidate, true
		}
	}
	if frames := s.Frames(key); len(frames) > 0 {
		return frames[0], true
	}
	return "", false
}

// Preview returns a preview image key, generating frames for videos when no
// preview exists.
func (s *Service) Preview(ctx context.Context, key string) (string, error) {
	if found, ok := s.FindPreview(key); ok {
		return found, nil
	}
	frames, err := s.PreviewFrames(ctx, key, true)
	if err != nil {
		return "", err
	}
	if len(frames) == 0 {
		return "", services.WithCode("no_preview",
			services.Wrap(services.ErrNotFound, "artifacts", "preview", fmt.Sprintf("no preview for %s", key), nil))
	}
	return frames[0], nil
}

// FindTranscode returns the transcode key for a video when it already exists.
func (s *Service) FindTranscode(key string) (string, bool) {
	destKey := mediaroot.TranscodeKey(key)
	full, err := s.root.Resolve(destKey)
	if err != nil {
		return "", false
	}
	ok, _ := fileutil.Exists(full)
	return destKey, ok
}

// Transcode returns the key of a mobile-friendly copy of a video, producing it
// through the registry when absent.
func (s *Service) Transcode(ctx context.Context, key string) (string, error) {
	if kind, _ := mediaroot.KindForKey(key); kind != mediaroot.KindVideo {
		return "", services.Wrap(services.ErrValidation, "artifacts", "transcode", "not a video", nil)
	}
	if found, ok := s.FindTranscode(key); ok {
		return found, nil
	}
	if err := s.ToolAvailable(); err != nil {
		return "", err
	}
	src, err := s.source(key)
	if err != nil {
		return "", err
	}
	destKey := mediaroot.TranscodeKey(key)
	destFull, err := s.root.Resolve(destKey)
	if err != nil {
		return "", err
	}

	probe := func() ([]string, bool) {
		if ok, _ := fileutil.Exists(destFull); ok {
			return []string{destKey}, true
		}
		return nil, false
	}
	generator := func(ctx context.Context) error {
		return s.generateTranscode(ctx, src, destFull)
	}
	out, err := s.registry.Ensure(ctx, destFull, probe, generator)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", services.Wrap(services.ErrProcessingFailed, "artifacts", "transcode", "transcode missing after generation", nil)
	}
	return out[0], nil
}

func (s *Service) generateTranscode(ctx context.Context, src, destFull string) error {
	if err := os.MkdirAll(filepath.Dir(destFull), 0o755); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "transcode", "create transcode directory", err)
	}
	tmp := destFull + ".partial-" + uuid.NewString()
	defer os.Remove(tmp)
	if err := s.runner.Transcode(ctx, src, tmp); err != nil {
		return err
	}
	if ok, _ := fileutil.Exists(tmp); !ok {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "transcode", "ffmpeg produced no output", nil)
	}
	if err := os.Rename(tmp, destFull); err != nil {
		return services.Wrap(services.ErrProcessingFailed, "artifacts", "transcode", "publish transcode", err)
	}
	s.logger.Info("transcode generated", logging.String(logging.FieldPath, destFull))
	return nil
}

func (s *Service) source(key string) (string, error) {
	full, err := s.root.Resolve(key)
	if err != nil {
		return "", err
	}
	ok, err := fileutil.Exists(full)
	if err != nil || !ok {
		return "", services.Wrap(services.ErrNotFound, "artifacts", "source", fmt.Sprintf("%s not found", key), err)
	}
	return full, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
