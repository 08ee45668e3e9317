package artifacts

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"camreview/internal/logging"
)

// Probe reports the artifacts currently present for a key and whether they
// satisfy the request without generating.
type Probe func() (artifacts []string, ok bool)

// Generator produces the artifacts for a key.
type Generator func(ctx context.Context) error

// Registry deduplicates artifact generation per destination key.
type Registry struct {
	group  singleflight.Group
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]int
	runs     int
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logging.NewComponentLogger(logger, "artifacts"),
		inflight: make(map[string]int),
	}
}

// Ensure returns the artifacts for key, generating them at most once across
// concurrent callers. An existing artifact is returned without calling
// generate. Callers that arrive while a generation for key is running wait
// for that run instead of starting another.
//
// ctx only bounds the caller's wait: generation runs detached from it and
// completes even if every waiter gives up, so the result is cached for the
// next request.
func (r *Registry) Ensure(ctx context.Context, key string, probe Probe, generate Generator) ([]string, error) {
	if out, ok := probe(); ok {
		return out, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		r.track(key, 1)
		defer r.track(key, -1)
		// a run that finished between our probe and joining the group
		// has already produced the artifact
		if out, ok := probe(); ok {
			return out, nil
		}
		if err := generate(detached); err != nil {
			r.logger.Warn("artifact generation failed",
				logging.String(logging.FieldEventType, "artifact_generation_failed"),
				logging.String("key", key),
				logging.Error(err))
			return nil, err
		}
		out, _ := probe()
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out, _ := res.Val.([]string)
		return append([]string(nil), out...), nil
	}
}

// InFlight reports whether a generation for key is running.
func (r *Registry) InFlight(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight[key] > 0
}

// Pending returns the number of keys currently generating.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Runs returns how many deduplicated flights have started since construction.
func (r *Registry) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *Registry) track(key string, delta int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delta > 0 {
		r.runs++
	}
	r.inflight[key] += delta
	if r.inflight[key] <= 0 {
		delete(r.inflight, key)
	}
}
