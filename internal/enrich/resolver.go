package enrich

import (
	"context"
	"fmt"

	"camreview/internal/media"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
)

// FrameSource exposes video preview frames and sidecar previews.
type FrameSource interface {
	PreviewFrames(ctx context.Context, key string, generate bool) ([]string, error)
	FindPreview(key string) (string, bool)
}

// ImageResolver picks the image sent to the classifier for an item: the file
// itself for images, a preview frame for videos.
type ImageResolver struct {
	root   *mediaroot.Root
	frames FrameSource
}

// NewImageResolver constructs a resolver. frames may be nil when videos never
// need resolving.
func NewImageResolver(root *mediaroot.Root, frames FrameSource) *ImageResolver {
	return &ImageResolver{root: root, frames: frames}
}

// Resolve returns the absolute path of a representative image for item.
func (r *ImageResolver) Resolve(ctx context.Context, item media.Item) (string, error) {
	if item.IsImage() {
		return r.root.Resolve(item.Path)
	}
	if r.frames != nil {
		// frame generation failures fall through to sidecar lookup
		if frames, err := r.frames.PreviewFrames(ctx, item.Path, true); err == nil && len(frames) > 0 {
			return r.root.Resolve(frames[0])
		}
		if preview, ok := r.frames.FindPreview(item.Path); ok {
			return r.root.Resolve(preview)
		}
	}
	return "", noPreview(item.Path)
}

func noPreview(key string) error {
	return services.WithCode("no_preview",
		services.Wrap(services.ErrNotFound, "enrich", "resolve image", fmt.Sprintf("no preview image for %s", key), nil))
}
