package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"camreview/internal/logging"
	"camreview/internal/mediaroot"
	"camreview/internal/services"
	"camreview/internal/services/llm"
)

// Completer is the LLM surface the classifier needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
	Model() string
	Configured() bool
}

// Image is an encoded image and its MIME type.
type Image struct {
	Data []byte
	MIME string
}

// LoadImage reads an image file, deriving its MIME type from the extension.
func LoadImage(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, services.Wrap(services.ErrNotFound, "vision", "load image", filepath.Base(path), err)
	}
	return Image{Data: data, MIME: mediaroot.ContentType(filepath.Ext(path))}, nil
}

// Classifier wraps the animal-presence and caption prompts.
type Classifier struct {
	client Completer
	logger *slog.Logger
}

// NewClassifier constructs a classifier over client.
func NewClassifier(client Completer, logger *slog.Logger) *Classifier {
	return &Classifier{
		client: client,
		logger: logging.NewComponentLogger(logger, "vision"),
	}
}

// Configured reports whether calls can be made at all.
func (c *Classifier) Configured() bool {
	return c != nil && c.client != nil && c.client.Configured()
}

// Model returns the model name recorded on results.
func (c *Classifier) Model() string {
	if c == nil || c.client == nil {
		return ""
	}
	return c.client.Model()
}

// Classify asks whether img shows an animal.
func (c *Classifier) Classify(ctx context.Context, img Image) (Detection, error) {
	if !c.Configured() {
		return Detection{}, services.Wrap(services.ErrMissingCredentials, "vision", "classify", "llm api key not configured", nil)
	}
	reply, err := c.client.Complete(ctx, llm.Request{
		System: detectSystemPrompt,
		Parts:  []llm.ContentPart{llm.TextPart(detectUserPrompt), llm.ImagePart(img.MIME, img.Data)},
	})
	if err != nil {
		return Detection{}, err
	}
	c.logger.Debug("classifier reply", logging.String("reply", reply))
	detection, err := ParseDetection(reply)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "unrecognized classifier reply", "vision_invalid_response",
			logging.String("reply", truncate(reply, 200)),
			logging.Error(err))
		return Detection{}, err
	}
	return detection, nil
}

// Caption asks for a short caption of img.
func (c *Classifier) Caption(ctx context.Context, img Image) (string, error) {
	if !c.Configured() {
		return "", services.Wrap(services.ErrMissingCredentials, "vision", "caption", "llm api key not configured", nil)
	}
	reply, err := c.client.Complete(ctx, llm.Request{
		System:      captionSystemPrompt,
		Parts:       []llm.ContentPart{llm.TextPart(captionUserPrompt), llm.ImagePart(img.MIME, img.Data)},
		Temperature: captionTemperature,
		MaxTokens:   captionMaxTokens,
	})
	if err != nil {
		return "", err
	}
	caption := strings.TrimSpace(reply)
	if caption == "" {
		return "", services.Wrap(services.ErrInvalidResponse, "vision", "caption", "empty caption", nil)
	}
	return caption, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:limit]))
}
