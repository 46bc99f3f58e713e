package filter

import "github.com/eugener68/playlistbuilder/internal/domain/track"

// DuplicateStage removes exact repeats of a track identity, keeping the
// first occurrence. Alternate recordings with different IDs pass
// through; collapsing those is the VariantStage's job.
type DuplicateStage struct{}

// NewDuplicateStage creates a new exact-duplicate filter.
func NewDuplicateStage() *DuplicateStage {
	return &DuplicateStage{}
}

// Name returns the stage name.
func (s *DuplicateStage) Name() string {
	return "duplicate"
}

// Apply keeps the first occurrence per track ID and drops later repeats.
func (s *DuplicateStage) Apply(tracks []track.Track) ([]track.Track, int) {
	seen := make(map[string]bool, len(tracks))
	kept := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		kept = append(kept, t)
	}
	return kept, len(tracks) - len(kept)
}
