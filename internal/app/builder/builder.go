// Package builder implements the playlist assembly pipeline: artist
// resolution, track collection, duplicate and variant filtering,
// ordering, and reconciliation with the destination playlist.
package builder

import (
	"context"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/app/filter"
	"github.com/eugener68/playlistbuilder/internal/app/shuffle"
	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// Builder assembles and uploads playlists. One Build call is one
// logically sequential pipeline; no state crosses invocations, so a
// single Builder is safe to share across builds with different inputs.
type Builder struct {
	deps            Deps
	now             func() time.Time
	variantSettings map[string]any
}

// New creates a Builder over the given collaborators.
func New(deps Deps) *Builder {
	return &Builder{deps: deps, now: time.Now}
}

// SetClock overrides the build clock (date stamps and derived seeds).
func (b *Builder) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// SetVariantSettings supplies variant-filter settings from config.
func (b *Builder) SetVariantSettings(settings map[string]any) {
	b.variantSettings = settings
}

// Build creates or updates a destination playlist per the options.
// Any stage failure aborts the remaining stages; no partial playlist
// is ever written. Dry runs perform no remote mutation whatsoever.
func (b *Builder) Build(ctx context.Context, opts Options) (*playlist.BuildResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := b.deps.validate(opts); err != nil {
		return nil, err
	}

	name := b.resolvePlaylistName(opts)

	profile, err := b.deps.Profile.CurrentUser(ctx)
	if err != nil {
		return nil, underlying(err, "failed to fetch user profile")
	}
	if profile.ID == "" {
		return nil, ErrMissingUserID
	}

	artists, err := b.resolveArtists(ctx, opts)
	if err != nil {
		return nil, err
	}

	raw, fetched, err := b.collectTracks(ctx, artists, opts)
	if err != nil {
		return nil, err
	}

	chain, err := b.filterChain(opts)
	if err != nil {
		return nil, err
	}
	filtered, removed := chain.Execute(raw)

	// Truncate before ordering so the shuffle operates on the final set.
	if len(filtered) > opts.MaxTracks {
		filtered = filtered[:opts.MaxTracks]
	}
	seed := shuffle.SeedFrom(opts.ShuffleSeed, b.now())
	ordered := filtered
	if opts.Shuffle {
		ordered = shuffle.Balanced(filtered, shuffle.NewRand(seed))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prepared := track.URIs(ordered)
	display := make([]string, len(ordered))
	for i, t := range ordered {
		display[i] = t.Display()
	}

	outcome, err := b.reconcile(ctx, name, profile.ID, ordered, prepared, seed, opts)
	if err != nil {
		return nil, err
	}

	stats := playlist.Stats{
		PlaylistName:       name,
		ArtistsRetrieved:   len(artists),
		TopTracksRetrieved: fetched,
		VariantsDeduped:    removed,
		TotalPrepared:      len(prepared),
		TotalUploaded:      outcome.uploaded,
	}
	zlog.Info().
		Str("playlist", stats.PlaylistName).
		Int("artists", stats.ArtistsRetrieved).
		Int("top_tracks", stats.TopTracksRetrieved).
		Int("variants_deduped", stats.VariantsDeduped).
		Int("prepared", stats.TotalPrepared).
		Int("uploaded", stats.TotalUploaded).
		Bool("dry_run", opts.DryRun).
		Msg("playlist build finished")

	return &playlist.BuildResult{
		PlaylistID:     outcome.playlistID,
		PlaylistName:   name,
		PreparedURIs:   prepared,
		AddedURIs:      outcome.added,
		UploadOrder:    outcome.upload,
		DisplayTracks:  display,
		DryRun:         opts.DryRun,
		ReusedExisting: outcome.reused,
		Stats:          stats,
	}, nil
}

// filterChain assembles the configured filter stages in fixed order:
// exact dedupe first, variant collapse second.
func (b *Builder) filterChain(opts Options) (*filter.Chain, error) {
	chain := filter.NewChain()
	if opts.DedupeExact {
		chain.Add(filter.NewDuplicateStage())
	}
	if opts.PreferOriginal {
		stage, err := filter.NewVariantStage(b.variantSettings)
		if err != nil {
			return nil, err
		}
		chain.Add(stage)
	}
	return chain, nil
}

// resolvePlaylistName applies the blank-name fallback and the optional
// calendar date suffix.
func (b *Builder) resolvePlaylistName(opts Options) string {
	base := strings.TrimSpace(opts.PlaylistName)
	if base == "" {
		base = "Untitled Playlist"
	}
	if !opts.DateStamp {
		return base
	}
	return base + " " + b.now().Format("2006-01-02")
}
