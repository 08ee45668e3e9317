package vision

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"camreview/internal/logging"
	"camreview/internal/services"
	"camreview/internal/services/llm"
)

type stubCompleter struct {
	reply      string
	err        error
	configured bool
	requests   []llm.Request
}

func (s *stubCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	s.requests = append(s.requests, req)
	return s.reply, s.err
}
func (s *stubCompleter) Model() string    { return "test/model" }
func (s *stubCompleter) Configured() bool { return s.configured }

func TestParseDetection(t *testing.T) {
	cases := []struct {
		name       string
		in         string
		critter    bool
		confidence float64
		noConf     bool
	}{
		{name: "strict", in: `{"critter": true, "confidence": 0.82}`, critter: true, confidence: 0.82},
		{name: "prose", in: "Sure! Here it is: {\"critter\": false, \"confidence\": 0.1} hope that helps", critter: false, confidence: 0.1},
		{name: "percent", in: `{"critter": "yes", "confidence": 85}`, critter: true, confidence: 0.85},
		{name: "clamped", in: `{"critter": 1, "confidence": 250}`, critter: true, confidence: 1},
		{name: "negative clamp", in: `{"critter": "no", "confidence": -3}`, critter: false, confidence: 0},
		{name: "camel alias", in: `{"animalPresent": true}`, critter: true, noConf: true},
		{name: "snake alias", in: `{"animal_present": "false", "confidence": "high"}`, critter: false, noConf: true},
		{name: "zero number", in: `{"critter": 0, "confidence": 0.5}`, critter: false, confidence: 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDetection(tc.in)
			if err != nil {
				t.Fatalf("ParseDetection: %v", err)
			}
			if got.Critter != tc.critter {
				t.Fatalf("critter: got %v want %v", got.Critter, tc.critter)
			}
			if tc.noConf {
				if got.Confidence != nil {
					t.Fatalf("expected nil confidence, got %v", *got.Confidence)
				}
				return
			}
			if got.Confidence == nil || *got.Confidence != tc.confidence {
				t.Fatalf("confidence: got %v want %v", got.Confidence, tc.confidence)
			}
		})
	}
}

func TestParseDetectionInvalid(t *testing.T) {
	for _, in := range []string{
		"",
		"I think there is a deer",
		`{"confidence": 0.9}`,
		`{"critter": "maybe"}`,
		`{"critter": null}`,
	} {
		if _, err := ParseDetection(in); !errors.Is(err, services.ErrInvalidResponse) {
			t.Fatalf("ParseDetection(%q): expected ErrInvalidResponse, got %v", in, err)
		}
	}
}

func TestClassifyBuildsRequest(t *testing.T) {
	stub := &stubCompleter{reply: `{"critter": true, "confidence": 0.9}`, configured: true}
	classifier := NewClassifier(stub, logging.NewNop())

	got, err := classifier.Classify(context.Background(), Image{Data: []byte("jpg"), MIME: "image/jpeg"})
	if err != nil || !got.Critter {
		t.Fatalf("unexpected result %+v %v", got, err)
	}
	req := stub.requests[0]
	if req.System != detectSystemPrompt || req.Temperature != 0 || len(req.Parts) != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Parts[1].ImageURL == nil || req.Parts[1].ImageURL.URL != "data:image/jpeg;base64,anBn" {
		t.Fatalf("unexpected image part %+v", req.Parts[1])
	}
	if classifier.Model() != "test/model" {
		t.Fatalf("unexpected model %q", classifier.Model())
	}
}

func TestClassifyMissingCredentials(t *testing.T) {
	stub := &stubCompleter{}
	classifier := NewClassifier(stub, logging.NewNop())
	if _, err := classifier.Classify(context.Background(), Image{}); !errors.Is(err, services.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if len(stub.requests) != 0 {
		t.Fatal("no request expected without credentials")
	}
}

func TestClassifyPassesThroughClientErrors(t *testing.T) {
	stub := &stubCompleter{configured: true, err: services.WithCode("openrouter_503", errors.New("unavailable"))}
	classifier := NewClassifier(stub, logging.NewNop())
	_, err := classifier.Classify(context.Background(), Image{Data: []byte("x"), MIME: "image/png"})
	if services.Code(err) != "openrouter_503" {
		t.Fatalf("expected openrouter_503, got %v", err)
	}
}

func TestCaption(t *testing.T) {
	stub := &stubCompleter{reply: "  A raccoon inspects the feeder.  ", configured: true}
	classifier := NewClassifier(stub, logging.NewNop())
	got, err := classifier.Caption(context.Background(), Image{Data: []byte("x"), MIME: "image/png"})
	if err != nil || got != "A raccoon inspects the feeder." {
		t.Fatalf("unexpected caption %q %v", got, err)
	}
	req := stub.requests[0]
	if req.Temperature != captionTemperature || req.MaxTokens != captionMaxTokens {
		t.Fatalf("unexpected caption request %+v", req)
	}

	stub.reply = "   "
	if _, err := classifier.Caption(context.Background(), Image{}); !errors.Is(err, services.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse for empty caption, got %v", err)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.PNG")
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	img, err := LoadImage(path)
	if err != nil || img.MIME != "image/png" || string(img.Data) != "png" {
		t.Fatalf("unexpected image %+v %v", img, err)
	}
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.jpg")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
