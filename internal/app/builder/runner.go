package builder

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
)

// Runner serializes builds against one destination context. Starting a
// build cancels the in-flight one; a superseded build terminates
// silently, reporting neither a result nor an error. Builds targeting
// different destinations may use separate Runners and proceed in
// parallel.
type Runner struct {
	builder *Builder

	mu      sync.Mutex
	cancel  context.CancelFunc
	current uuid.UUID
}

// NewRunner creates a Runner over the given Builder.
func NewRunner(b *Builder) *Runner {
	return &Runner{builder: b}
}

// Run executes one build, cancelling any build still in flight on this
// Runner. Returns (nil, nil) when this build was itself superseded or
// the caller's context was cancelled.
func (r *Runner) Run(ctx context.Context, opts Options) (*playlist.BuildResult, error) {
	r.mu.Lock()
	if r.cancel != nil {
		zlog.Debug().Str("build", r.current.String()).Msg("cancelling superseded build")
		r.cancel()
	}
	buildCtx, cancel := context.WithCancel(ctx)
	id := uuid.New()
	r.cancel = cancel
	r.current = id
	r.mu.Unlock()

	result, err := r.builder.Build(buildCtx, opts)

	r.mu.Lock()
	if r.current == id {
		r.cancel = nil
	}
	r.mu.Unlock()
	cancel()

	if err != nil && errors.Is(err, context.Canceled) {
		return nil, nil
	}
	return result, err
}

// Cancel stops the in-flight build, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}
