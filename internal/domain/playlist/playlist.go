// Package playlist provides playlist-side domain types: the summary of
// an existing destination, per-build stats, and the build result.
package playlist

import (
	"fmt"

	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// Summary is a read-only snapshot of an existing destination playlist,
// used for reconciliation decisions.
type Summary struct {
	ID         string
	Name       string
	OwnerID    string
	TrackCount int
}

// Stats holds the counts visible at each pipeline stage.
type Stats struct {
	PlaylistName       string
	ArtistsRetrieved   int
	TopTracksRetrieved int
	VariantsDeduped    int // exact-ID removals + variant-filter removals
	TotalPrepared      int
	TotalUploaded      int // 0 on dry runs
}

// Lines renders the stats for human-readable reporting.
func (s Stats) Lines() []string {
	return []string{
		fmt.Sprintf("Playlist name: %s", s.PlaylistName),
		fmt.Sprintf("Artists retrieved: %d", s.ArtistsRetrieved),
		fmt.Sprintf("Top songs retrieved: %d", s.TopTracksRetrieved),
		fmt.Sprintf("Variants deduped: %d", s.VariantsDeduped),
		fmt.Sprintf("Total tracks added to the list: %d", s.TotalUploaded),
	}
}

// BuildResult summarizes one playlist build. AddedURIs and UploadOrder
// are populated even on dry runs so a caller can preview the effect of
// a build without mutating remote state.
type BuildResult struct {
	PlaylistID     string // empty until a destination exists
	PlaylistName   string // resolved name, date suffix applied
	PreparedURIs   []track.Reference
	AddedURIs      []track.Reference // new-to-destination references
	UploadOrder    []track.Reference // final write order
	DisplayTracks  []string
	DryRun         bool
	ReusedExisting bool
	Stats          Stats
}
