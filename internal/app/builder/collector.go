package builder

import (
	"context"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// collectTracks fetches up to LimitPerArtist top tracks per resolved
// artist, in resolution order, one call per artist. The returned count
// is the raw number of tracks fetched before any filtering. Iteration
// stops early once the raw list reaches MaxTracks; later stages
// re-truncate, so this is an optimization, not a hard cut.
func (b *Builder) collectTracks(ctx context.Context, artists []artist.Artist, opts Options) ([]track.Track, int, error) {
	raw := make([]track.Track, 0, opts.LimitPerArtist*len(artists))
	fetched := 0

	for _, a := range artists {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		tops, err := b.deps.Tracks.TopTracks(ctx, a.ID, opts.LimitPerArtist)
		if err != nil {
			return nil, 0, underlying(err, "failed to fetch top tracks")
		}
		fetched += len(tops)
		for _, t := range tops {
			if t.ID == "" {
				continue
			}
			raw = append(raw, t)
		}
		if len(raw) >= opts.MaxTracks {
			break
		}
	}

	if len(raw) == 0 {
		return nil, fetched, ErrNoTracks
	}
	return raw, fetched, nil
}
