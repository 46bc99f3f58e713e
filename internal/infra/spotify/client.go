// Package spotify provides the Spotify-backed implementation of the
// builder's catalog collaborators.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/eugener68/playlistbuilder/internal/app/builder"
	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

const pageSize = 100

// ErrUnauthorized marks authorization failures raised by the Web API.
var ErrUnauthorized = errors.New("spotify authorization failed")

// RateLimitedError signals the API asked us to slow down. The core
// pipeline does not retry; RetryAfter is a suggestion for the caller.
type RateLimitedError struct {
	RetryAfter time.Duration
	cause      error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("spotify rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error {
	return e.cause
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// Client is a Spotify Web API client implementing the builder's
// ProfileService, ArtistCatalog, TrackCatalog and PlaylistService
// interfaces. Requests are paced with a local limiter; failed calls
// are surfaced, never retried.
type Client struct {
	client  *spotify.Client
	market  string
	limiter *rate.Limiter
}

// New creates a new Spotify client from a refresh token.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopeUserFollowRead,
			spotifyauth.ScopeUserTopRead,
		),
	)
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	httpClient := auth.Client(ctx, token)

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Client{
		client:  spotify.New(httpClient),
		market:  market,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}, nil
}

// CurrentUser returns the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (builder.Profile, error) {
	if err := c.wait(ctx); err != nil {
		return builder.Profile{}, err
	}
	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return builder.Profile{}, c.wrap(err, "failed to fetch current user")
	}
	return builder.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

// SearchArtists searches artists by free-text or field-filtered query.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]artist.Artist, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	result, err := c.client.Search(ctx, query, spotify.SearchTypeArtist, spotify.Limit(limit))
	if err != nil {
		return nil, c.wrap(err, "artist search failed")
	}
	if result.Artists == nil {
		return nil, nil
	}
	return convertArtists(result.Artists.Artists), nil
}

// ArtistByID fetches a single artist.
func (c *Client) ArtistByID(ctx context.Context, id string) (artist.Artist, error) {
	if err := c.wait(ctx); err != nil {
		return artist.Artist{}, err
	}
	a, err := c.client.GetArtist(ctx, spotify.ID(id))
	if err != nil {
		return artist.Artist{}, c.wrap(err, "failed to fetch artist")
	}
	return artist.Artist{ID: string(a.ID), Name: a.Name}, nil
}

// TopArtists returns the user's top artists.
func (c *Client) TopArtists(ctx context.Context, limit int) ([]artist.Artist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.client.CurrentUsersTopArtists(ctx, spotify.Limit(capLimit(limit)))
	if err != nil {
		return nil, c.wrap(err, "failed to fetch top artists")
	}
	return convertArtists(page.Artists), nil
}

// FollowedArtists returns the artists the user follows.
func (c *Client) FollowedArtists(ctx context.Context, limit int) ([]artist.Artist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.client.CurrentUsersFollowedArtists(ctx, spotify.Limit(capLimit(limit)))
	if err != nil {
		return nil, c.wrap(err, "failed to fetch followed artists")
	}
	return convertArtists(page.Artists), nil
}

// TopTracks returns up to limit of an artist's most popular tracks.
func (c *Client) TopTracks(ctx context.Context, artistID string, limit int) ([]track.Track, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	full, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(artistID), c.market)
	if err != nil {
		return nil, c.wrap(err, "failed to fetch top tracks")
	}
	if limit > 0 && len(full) > limit {
		full = full[:limit]
	}
	tracks := make([]track.Track, 0, len(full))
	for i := range full {
		tracks = append(tracks, convertTrack(&full[i]))
	}
	return tracks, nil
}

// FindPlaylist locates the user's playlist by case-insensitive name
// match. Returns nil when no playlist matches.
func (c *Client) FindPlaylist(ctx context.Context, name, ownerID string) (*playlist.Summary, error) {
	needle := artist.Fold(name)
	offset := 0
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.client.CurrentUsersPlaylists(ctx, spotify.Limit(50), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrap(err, "failed to list playlists")
		}
		for _, p := range page.Playlists {
			if artist.Fold(p.Name) != needle {
				continue
			}
			if ownerID != "" && p.Owner.ID != ownerID {
				continue
			}
			return &playlist.Summary{
				ID:         string(p.ID),
				Name:       p.Name,
				OwnerID:    p.Owner.ID,
				TrackCount: int(p.Tracks.Total),
			}, nil
		}
		if len(page.Playlists) < 50 {
			return nil, nil
		}
		offset += 50
	}
}

// PlaylistTracks returns the playlist's current track references in
// order, paginating internally.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]track.Reference, error) {
	var refs []track.Reference
	offset := 0
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
			spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, c.wrap(err, "failed to fetch playlist items")
		}
		for _, item := range page.Items {
			// Episodes carry no track and are skipped.
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			refs = append(refs, convertTrack(item.Track.Track).URI())
		}
		if len(page.Items) < pageSize {
			return refs, nil
		}
		offset += pageSize
	}
}

// CreatePlaylist creates a destination playlist and returns its ID.
func (c *Client) CreatePlaylist(ctx context.Context, ownerID, name, description string, public bool) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	p, err := c.client.CreatePlaylistForUser(ctx, ownerID, name, description, public, false)
	if err != nil {
		return "", c.wrap(err, "failed to create playlist")
	}
	return string(p.ID), nil
}

// ReplaceTracks replaces the playlist's contents with refs. The caller
// chunks; refs must not exceed 100 entries.
func (c *Client) ReplaceTracks(ctx context.Context, playlistID string, refs []track.Reference) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := c.client.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), toIDs(refs)...); err != nil {
		return c.wrap(err, "failed to replace playlist tracks")
	}
	return nil
}

// AddTracks appends refs to the playlist. The caller chunks; refs must
// not exceed 100 entries.
func (c *Client) AddTracks(ctx context.Context, playlistID string, refs []track.Reference) error {
	if len(refs) == 0 {
		return nil
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), toIDs(refs)...); err != nil {
		return c.wrap(err, "failed to add playlist tracks")
	}
	return nil
}

// capLimit clamps a page limit to the API's 1..50 window.
func capLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "request pacing interrupted")
	}
	return nil
}

// wrap classifies Web API failures: 401/403 are marked unauthorized,
// 429 becomes a RateLimitedError carrying a retry suggestion.
func (c *Client) wrap(err error, msg string) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Mark(errors.Wrap(err, msg), ErrUnauthorized)
		case http.StatusTooManyRequests:
			return errors.Wrap(&RateLimitedError{RetryAfter: time.Second, cause: err}, msg)
		}
	}
	return errors.Wrap(err, msg)
}

func convertArtists(full []spotify.FullArtist) []artist.Artist {
	out := make([]artist.Artist, 0, len(full))
	for _, a := range full {
		if a.ID == "" {
			continue
		}
		out = append(out, artist.Artist{ID: string(a.ID), Name: a.Name})
	}
	return out
}

func convertTrack(t *spotify.FullTrack) track.Track {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return track.Track{ID: string(t.ID), Name: t.Name, Artists: names}
}

func toIDs(refs []track.Reference) []spotify.ID {
	ids := make([]spotify.ID, len(refs))
	for i, ref := range refs {
		ids[i] = spotify.ID(ref.ID())
	}
	return ids
}
