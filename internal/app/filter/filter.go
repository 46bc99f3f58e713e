// Package filter provides the track-list filter chain: stages that walk
// an assembled candidate list and drop unwanted entries.
package filter

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// Stage is the interface for track-list filters. Apply returns the kept
// tracks in their original relative order plus the number removed.
type Stage interface {
	// Name returns the stage name (used in config and logs).
	Name() string
	// Apply filters the track list.
	Apply(tracks []track.Track) (kept []track.Track, removed int)
}

// Chain executes stages in sequence and accumulates removal counts.
type Chain struct {
	stages []Stage
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{stages: make([]Stage, 0)}
}

// Add appends a stage to the chain.
func (c *Chain) Add(s Stage) {
	c.stages = append(c.stages, s)
}

// Execute runs all stages in order over the track list.
// Returns the surviving tracks and the total number removed.
func (c *Chain) Execute(tracks []track.Track) ([]track.Track, int) {
	total := 0
	for _, s := range c.stages {
		kept, removed := s.Apply(tracks)
		if removed > 0 {
			zlog.Debug().Msgf("filter stage removed tracks: stage=%s removed=%d remaining=%d",
				s.Name(), removed, len(kept))
		}
		tracks = kept
		total += removed
	}
	return tracks, total
}

// Stages returns all stages in the chain.
func (c *Chain) Stages() []Stage {
	return c.stages
}
