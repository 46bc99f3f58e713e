package builder

import (
	"context"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// Profile identifies the catalog user a build acts on behalf of.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// ProfileService resolves the current catalog user.
type ProfileService interface {
	CurrentUser(ctx context.Context) (Profile, error)
}

// ArtistCatalog supports artist search and batch artist queries.
type ArtistCatalog interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]artist.Artist, error)
	ArtistByID(ctx context.Context, id string) (artist.Artist, error)
	TopArtists(ctx context.Context, limit int) ([]artist.Artist, error)
	FollowedArtists(ctx context.Context, limit int) ([]artist.Artist, error)
}

// TrackCatalog returns an artist's most popular tracks.
type TrackCatalog interface {
	TopTracks(ctx context.Context, artistID string, limit int) ([]track.Track, error)
}

// PlaylistService is the destination playlist sink. FindPlaylist
// returns nil when no playlist matches. ReplaceTracks and AddTracks
// operate on at most 100 references per call; the reconciler performs
// the chunking.
type PlaylistService interface {
	FindPlaylist(ctx context.Context, name, ownerID string) (*playlist.Summary, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]track.Reference, error)
	CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (string, error)
	ReplaceTracks(ctx context.Context, playlistID string, refs []track.Reference) error
	AddTracks(ctx context.Context, playlistID string, refs []track.Reference) error
}

// Deps bundles the collaborators a build needs. The pipeline depends
// only on these interfaces, never on a concrete transport.
type Deps struct {
	Profile   ProfileService
	Artists   ArtistCatalog
	Tracks    TrackCatalog
	Playlists PlaylistService
}

// validate checks that every collaborator the given options require is
// present. The playlist sink is optional for dry runs that do not
// consult an existing destination.
func (d Deps) validate(opts Options) error {
	if d.Profile == nil {
		return errorsMissing("profile service")
	}
	if d.Artists == nil {
		return errorsMissing("artist catalog")
	}
	if d.Tracks == nil {
		return errorsMissing("track catalog")
	}
	if d.Playlists == nil && (opts.ReuseExisting || !opts.DryRun) {
		return errorsMissing("playlist service")
	}
	return nil
}
