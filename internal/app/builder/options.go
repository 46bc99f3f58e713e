package builder

import (
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// Options is the immutable per-build configuration.
type Options struct {
	PlaylistName   string // blank falls back to "Untitled Playlist"
	DateStamp      bool
	LimitPerArtist int `validate:"gte=1"`
	MaxArtists     int `validate:"gte=1"`
	MaxTracks      int `validate:"gte=1"`
	Shuffle        bool
	ShuffleSeed    *int64
	DedupeExact    bool
	PreferOriginal bool
	ReuseExisting  bool
	Truncate       bool
	DryRun         bool

	// Artist sources. Queries are tried in order; ArtistsFile supplies
	// further queries (one per line, '#' comments). TopArtists and
	// FollowedArtists append catalog-derived artists after the manual
	// ones.
	Queries         []string
	ArtistsFile     string
	TopArtists      bool
	FollowedArtists bool

	// Destination presentation.
	Public      bool
	Description string
}

// DefaultOptions returns the builder defaults. Dry run is on by
// default so a misconfigured invocation cannot mutate remote state.
func DefaultOptions() Options {
	return Options{
		PlaylistName:   "Fav Artists Top Tracks",
		LimitPerArtist: 5,
		MaxArtists:     50,
		MaxTracks:      250,
		DryRun:         true,
		Description:    "Generated by Playlist Builder",
	}
}

// Validate checks the option invariants.
func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return errors.Wrap(err, "invalid playlist options")
	}
	return nil
}
