package builder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
)

const searchLimit = 10

// resolveArtists turns the configured artist sources into matched
// catalog artists: manual queries first (in order, case-insensitively
// deduplicated), then optional top/followed supplements, all
// ID-deduplicated and capped at MaxArtists. A query with zero search
// hits is skipped; resolution only fails when nothing at all resolves.
func (b *Builder) resolveArtists(ctx context.Context, opts Options) ([]artist.Artist, error) {
	queries := append([]string(nil), opts.Queries...)
	if opts.ArtistsFile != "" {
		fileQueries, err := readQueriesFile(opts.ArtistsFile)
		if err != nil {
			return nil, err
		}
		queries = append(queries, fileQueries...)
	}

	resolved := make([]artist.Artist, 0, opts.MaxArtists)
	seenIDs := make(map[string]bool)
	seenQueries := make(map[string]bool)

	for _, query := range queries {
		if len(resolved) >= opts.MaxArtists {
			break
		}
		query = strings.TrimSpace(query)
		folded := artist.Fold(query)
		if folded == "" || seenQueries[folded] {
			continue
		}
		seenQueries[folded] = true

		match, err := b.resolveQuery(ctx, query)
		if err != nil {
			return nil, err
		}
		if match == nil {
			zlog.Debug().Msgf("no artist found for query: query=%q", query)
			continue
		}
		if seenIDs[match.ID] {
			continue
		}
		seenIDs[match.ID] = true
		resolved = append(resolved, *match)
	}

	if opts.TopArtists {
		batch, err := b.deps.Artists.TopArtists(ctx, supplementLimit(opts))
		if err != nil {
			return nil, underlying(err, "failed to fetch top artists")
		}
		resolved = appendArtists(resolved, batch, seenIDs, opts.MaxArtists)
	}
	if opts.FollowedArtists {
		batch, err := b.deps.Artists.FollowedArtists(ctx, supplementLimit(opts))
		if err != nil {
			return nil, underlying(err, "failed to fetch followed artists")
		}
		resolved = appendArtists(resolved, batch, seenIDs, opts.MaxArtists)
	}

	if len(resolved) == 0 {
		return nil, ErrNoArtists
	}
	return resolved, nil
}

// resolveQuery matches one free-text query to a catalog artist. Direct
// URI and URL forms bypass search; otherwise the exact artist-field
// variant is tried before the raw query, short-circuiting on the first
// that yields a usable match. nil means no hit from either variant.
func (b *Builder) resolveQuery(ctx context.Context, query string) (*artist.Artist, error) {
	if id, ok := directArtistID(query); ok {
		a, err := b.deps.Artists.ArtistByID(ctx, id)
		if err != nil {
			return nil, underlying(err, "failed to look up artist by id")
		}
		return &a, nil
	}

	variants := []string{fmt.Sprintf("artist:%q", query), query}
	for _, v := range variants {
		matches, err := b.deps.Artists.SearchArtists(ctx, v, searchLimit)
		if err != nil {
			return nil, underlying(err, "artist search failed")
		}
		if len(matches) == 0 {
			continue
		}
		return bestMatch(query, matches), nil
	}
	return nil, nil
}

// bestMatch picks from a non-empty result set, in precedence order:
// exact folded-name match, folded name starting with the query plus a
// space, folded name containing the query, first returned candidate.
func bestMatch(query string, matches []artist.Artist) *artist.Artist {
	folded := artist.Fold(query)
	for i := range matches {
		if artist.Fold(matches[i].Name) == folded {
			return &matches[i]
		}
	}
	for i := range matches {
		if strings.HasPrefix(artist.Fold(matches[i].Name), folded+" ") {
			return &matches[i]
		}
	}
	for i := range matches {
		if strings.Contains(artist.Fold(matches[i].Name), folded) {
			return &matches[i]
		}
	}
	return &matches[0]
}

// directArtistID recognizes spotify:artist: URIs and
// open.spotify.com/artist URLs.
func directArtistID(query string) (string, bool) {
	if strings.HasPrefix(query, "spotify:artist:") {
		return strings.TrimPrefix(query, "spotify:artist:"), true
	}
	if strings.Contains(query, "open.spotify.com") && strings.Contains(query, "/artist/") {
		parts := strings.Split(query, "/artist/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/"), true
	}
	return "", false
}

func appendArtists(resolved, batch []artist.Artist, seenIDs map[string]bool, maxArtists int) []artist.Artist {
	for _, a := range batch {
		if len(resolved) >= maxArtists {
			break
		}
		if a.ID == "" || a.Name == "" || seenIDs[a.ID] {
			continue
		}
		seenIDs[a.ID] = true
		resolved = append(resolved, a)
	}
	return resolved
}

func supplementLimit(opts Options) int {
	if opts.MaxArtists > 20 {
		return opts.MaxArtists
	}
	return 20
}

// readQueriesFile loads artist queries from a newline-separated file.
// Blank lines and '#' comments are ignored.
func readQueriesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to open artists file %q", path), ErrArtistsFile)
	}
	defer f.Close()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to read artists file %q", path), ErrArtistsFile)
	}
	return queries, nil
}
