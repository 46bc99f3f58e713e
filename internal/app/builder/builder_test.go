package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

type writeCall struct {
	playlistID string
	refs       []track.Reference
}

// fakeCatalog implements every builder collaborator in memory and
// records the mutating calls.
type fakeCatalog struct {
	mu sync.Mutex

	profile    Profile
	profileErr error
	search     map[string][]artist.Artist
	byID       map[string]artist.Artist
	topArtists []artist.Artist
	followed   []artist.Artist
	tops       map[string][]track.Track
	topsErr    error
	summaries  map[string]*playlist.Summary
	contents   map[string][]track.Reference
	createdID  string

	// blockTops makes the first TopTracks call wait for context
	// cancellation; started is closed once that call is in flight.
	blockTops bool
	blocked   bool
	started   chan struct{}

	searches []string
	created  int
	replaces []writeCall
	adds     []writeCall
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		profile:   Profile{ID: "user1", DisplayName: "Test User"},
		search:    map[string][]artist.Artist{},
		byID:      map[string]artist.Artist{},
		tops:      map[string][]track.Track{},
		summaries: map[string]*playlist.Summary{},
		contents:  map[string][]track.Reference{},
		createdID: "created1",
		started:   make(chan struct{}),
	}
}

func (f *fakeCatalog) CurrentUser(ctx context.Context) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	return f.profile, f.profileErr
}

func (f *fakeCatalog) SearchArtists(_ context.Context, query string, _ int) ([]artist.Artist, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	return f.search[query], nil
}

func (f *fakeCatalog) ArtistByID(_ context.Context, id string) (artist.Artist, error) {
	a, ok := f.byID[id]
	if !ok {
		return artist.Artist{}, errors.Newf("unknown artist %q", id)
	}
	return a, nil
}

func (f *fakeCatalog) TopArtists(context.Context, int) ([]artist.Artist, error) {
	return f.topArtists, nil
}

func (f *fakeCatalog) FollowedArtists(context.Context, int) ([]artist.Artist, error) {
	return f.followed, nil
}

func (f *fakeCatalog) TopTracks(ctx context.Context, artistID string, limit int) ([]track.Track, error) {
	f.mu.Lock()
	firstBlocked := f.blockTops && !f.blocked
	if firstBlocked {
		f.blocked = true
	}
	f.mu.Unlock()
	if firstBlocked {
		close(f.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.topsErr != nil {
		return nil, f.topsErr
	}
	tops := f.tops[artistID]
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, nil
}

func (f *fakeCatalog) FindPlaylist(_ context.Context, name, _ string) (*playlist.Summary, error) {
	return f.summaries[name], nil
}

func (f *fakeCatalog) PlaylistTracks(_ context.Context, playlistID string) ([]track.Reference, error) {
	return f.contents[playlistID], nil
}

func (f *fakeCatalog) CreatePlaylist(_ context.Context, _, _, _ string, _ bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.createdID, nil
}

func (f *fakeCatalog) ReplaceTracks(_ context.Context, playlistID string, refs []track.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaces = append(f.replaces, writeCall{playlistID: playlistID, refs: refs})
	return nil
}

func (f *fakeCatalog) AddTracks(_ context.Context, playlistID string, refs []track.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, writeCall{playlistID: playlistID, refs: refs})
	return nil
}

func (f *fakeCatalog) deps() Deps {
	return Deps{Profile: f, Artists: f, Tracks: f, Playlists: f}
}

// addArtist registers an artist resolvable by both search variants plus
// n top tracks with stable IDs like "met-0".
func (f *fakeCatalog) addArtist(id, name string, trackCount int) {
	a := artist.Artist{ID: id, Name: name}
	f.search[fmt.Sprintf("artist:%q", name)] = []artist.Artist{a}
	f.search[name] = []artist.Artist{a}
	f.byID[id] = a
	tracks := make([]track.Track, trackCount)
	for i := range tracks {
		tracks[i] = track.Track{
			ID:      fmt.Sprintf("%s-%d", id, i),
			Name:    fmt.Sprintf("%s Song %d", name, i),
			Artists: []string{name},
		}
	}
	f.tops[id] = tracks
}

func testOptions(queries ...string) Options {
	opts := DefaultOptions()
	opts.PlaylistName = "Road Trip"
	opts.Queries = queries
	return opts
}

func TestBuild_DryRunNeverWrites(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 3)
	fake.addArtist("aha", "A-ha", 3)

	opts := testOptions("Metallica", "A-ha")
	opts.LimitPerArtist = 3

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Stats.ArtistsRetrieved)
	assert.Equal(t, 6, result.Stats.TopTracksRetrieved)
	assert.Equal(t, 6, result.Stats.TotalPrepared)
	assert.Equal(t, 0, result.Stats.TotalUploaded)
	assert.Len(t, result.PreparedURIs, 6)
	assert.Equal(t, result.PreparedURIs, result.AddedURIs)

	// Tracks arrive in artist resolution order when shuffle is off.
	assert.Equal(t, track.Reference("spotify:track:met-0"), result.PreparedURIs[0])
	assert.Equal(t, track.Reference("spotify:track:aha-0"), result.PreparedURIs[3])

	assert.Zero(t, fake.created)
	assert.Empty(t, fake.replaces)
	assert.Empty(t, fake.adds)
}

func TestBuild_CreatesAndUploads(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 3)

	opts := testOptions("Metallica")
	opts.DryRun = false
	opts.LimitPerArtist = 3

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "created1", result.PlaylistID)
	assert.False(t, result.ReusedExisting)
	assert.Equal(t, 1, fake.created)
	require.Len(t, fake.replaces, 1)
	assert.Equal(t, result.PreparedURIs, fake.replaces[0].refs)
	assert.Empty(t, fake.adds)
	assert.Equal(t, 3, result.Stats.TotalUploaded)
}

func TestBuild_UploadsInChunksOfHundred(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 250)

	opts := testOptions("Metallica")
	opts.DryRun = false
	opts.LimitPerArtist = 250
	opts.MaxTracks = 250

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, result.PreparedURIs, 250)
	require.Len(t, fake.replaces, 1)
	assert.Len(t, fake.replaces[0].refs, 100)
	require.Len(t, fake.adds, 2)
	assert.Len(t, fake.adds[0].refs, 100)
	assert.Len(t, fake.adds[1].refs, 50)
	assert.Equal(t, result.PreparedURIs[:100], fake.replaces[0].refs)
	assert.Equal(t, result.PreparedURIs[100:200], fake.adds[0].refs)
	assert.Equal(t, result.PreparedURIs[200:], fake.adds[1].refs)
}

func TestBuild_ReuseMergeKeepsExistingBehindPrepared(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 3)
	fake.summaries["Road Trip"] = &playlist.Summary{ID: "pl1", Name: "Road Trip", OwnerID: "user1"}
	fake.contents["pl1"] = []track.Reference{
		"spotify:track:met-1",
		"spotify:track:old-1",
		"spotify:track:old-2",
	}

	opts := testOptions("Metallica")
	opts.DryRun = false
	opts.ReuseExisting = true
	opts.LimitPerArtist = 3

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, result.ReusedExisting)
	assert.Equal(t, "pl1", result.PlaylistID)
	assert.Zero(t, fake.created)

	assert.Equal(t, []track.Reference{
		"spotify:track:met-0",
		"spotify:track:met-2",
	}, result.AddedURIs)
	assert.Equal(t, []track.Reference{
		"spotify:track:met-0",
		"spotify:track:met-1",
		"spotify:track:met-2",
		"spotify:track:old-1",
		"spotify:track:old-2",
	}, result.UploadOrder)

	require.Len(t, fake.replaces, 1)
	assert.Equal(t, result.UploadOrder, fake.replaces[0].refs)
	// Without truncation only the new-only tracks count as uploaded.
	assert.Equal(t, 2, result.Stats.TotalUploaded)
}

func TestBuild_ReuseTruncateDropsExistingSurplus(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("a1", "Alpha", 20)
	fake.addArtist("a2", "Bravo", 20)
	fake.addArtist("a3", "Charlie", 20)
	fake.summaries["Road Trip"] = &playlist.Summary{ID: "pl1", Name: "Road Trip", OwnerID: "user1"}
	existing := make([]track.Reference, 50)
	for i := range existing {
		existing[i] = track.Reference(fmt.Sprintf("spotify:track:old-%d", i))
	}
	fake.contents["pl1"] = existing

	opts := testOptions("Alpha", "Bravo", "Charlie")
	opts.DryRun = false
	opts.ReuseExisting = true
	opts.Truncate = true
	opts.LimitPerArtist = 20
	opts.MaxTracks = 25

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Len(t, result.PreparedURIs, 25)
	assert.Equal(t, result.PreparedURIs, result.UploadOrder)
	require.Len(t, fake.replaces, 1)
	assert.Equal(t, result.PreparedURIs, fake.replaces[0].refs)
	assert.Empty(t, fake.adds)
	assert.Equal(t, 25, result.Stats.TotalUploaded)
}

func TestBuild_ReuseDryRunComputesAddedWithoutWriting(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 3)
	fake.summaries["Road Trip"] = &playlist.Summary{ID: "pl1", Name: "Road Trip", OwnerID: "user1"}
	fake.contents["pl1"] = []track.Reference{"spotify:track:met-0"}

	opts := testOptions("Metallica")
	opts.ReuseExisting = true
	opts.LimitPerArtist = 3

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.True(t, result.ReusedExisting)
	assert.Equal(t, []track.Reference{
		"spotify:track:met-1",
		"spotify:track:met-2",
	}, result.AddedURIs)
	assert.Equal(t, 0, result.Stats.TotalUploaded)
	assert.Empty(t, fake.replaces)
	assert.Empty(t, fake.adds)
}

func TestBuild_ShuffleSeedIsDeterministic(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("a1", "Alpha", 4)
	fake.addArtist("a2", "Bravo", 4)

	seed := int64(1234)
	opts := testOptions("Alpha", "Bravo")
	opts.Shuffle = true
	opts.ShuffleSeed = &seed
	opts.LimitPerArtist = 4

	first, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)
	second, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, first.PreparedURIs, second.PreparedURIs)
	assert.Len(t, first.PreparedURIs, 8)
}

func TestBuild_ReuseShuffleReordersCombinedUpload(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("a1", "Alpha", 3)
	fake.addArtist("a2", "Bravo", 3)
	fake.summaries["Road Trip"] = &playlist.Summary{ID: "pl1", Name: "Road Trip", OwnerID: "user1"}
	fake.contents["pl1"] = []track.Reference{
		"spotify:track:a1-0",
		"spotify:track:old-1",
	}

	seed := int64(7)
	opts := testOptions("Alpha", "Bravo")
	opts.DryRun = false
	opts.ReuseExisting = true
	opts.Shuffle = true
	opts.ShuffleSeed = &seed
	opts.LimitPerArtist = 3

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	want := append(append([]track.Reference(nil), result.PreparedURIs...), "spotify:track:old-1")
	assert.ElementsMatch(t, want, result.UploadOrder)
	require.Len(t, fake.replaces, 1)
	assert.Equal(t, result.UploadOrder, fake.replaces[0].refs)

	// Same seed, same merged order.
	again, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, result.UploadOrder, again.UploadOrder)
}

func TestBuild_VariantFilterFeedsStats(t *testing.T) {
	fake := newFakeCatalog()
	a := artist.Artist{ID: "aha", Name: "A-ha"}
	fake.search[fmt.Sprintf("artist:%q", "A-ha")] = []artist.Artist{a}
	fake.tops["aha"] = []track.Track{
		{ID: "t1", Name: "Take On Me", Artists: []string{"A-ha"}},
		{ID: "t2", Name: "Take On Me - 2015 Remaster", Artists: []string{"A-ha"}},
		{ID: "t1", Name: "Take On Me", Artists: []string{"A-ha"}},
	}

	opts := testOptions("A-ha")
	opts.DedupeExact = true
	opts.PreferOriginal = true

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.TopTracksRetrieved)
	assert.Equal(t, 2, result.Stats.VariantsDeduped)
	assert.Equal(t, []track.Reference{"spotify:track:t1"}, result.PreparedURIs)
}

func TestBuild_ExactNameBeatsRankedFirstLookalike(t *testing.T) {
	fake := newFakeCatalog()
	fake.search[fmt.Sprintf("artist:%q", "Adele")] = []artist.Artist{
		{ID: "trib", Name: "Adele Tribute Band"},
		{ID: "adele", Name: "Adele"},
	}
	fake.tops["adele"] = []track.Track{{ID: "t1", Name: "Hello", Artists: []string{"Adele"}}}
	fake.tops["trib"] = []track.Track{{ID: "x1", Name: "Not Hello", Artists: []string{"Adele Tribute Band"}}}

	result, err := New(fake.deps()).Build(context.Background(), testOptions("Adele"))
	require.NoError(t, err)

	assert.Equal(t, []track.Reference{"spotify:track:t1"}, result.PreparedURIs)
}

func TestBuild_UnresolvedQueryIsSkipped(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 2)

	result, err := New(fake.deps()).Build(context.Background(), testOptions("No Such Band", "Metallica"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.ArtistsRetrieved)
	assert.Len(t, result.PreparedURIs, 2)
}

func TestBuild_DirectURIBypassesSearch(t *testing.T) {
	fake := newFakeCatalog()
	fake.byID["met123"] = artist.Artist{ID: "met123", Name: "Metallica"}
	fake.tops["met123"] = []track.Track{{ID: "t1", Name: "One", Artists: []string{"Metallica"}}}

	result, err := New(fake.deps()).Build(context.Background(), testOptions("spotify:artist:met123"))
	require.NoError(t, err)

	assert.Empty(t, fake.searches)
	assert.Len(t, result.PreparedURIs, 1)
}

func TestBuild_ArtistsFileSuppliesQueries(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 2)
	fake.addArtist("aha", "A-ha", 2)

	path := filepath.Join(t.TempDir(), "artists.txt")
	require.NoError(t, os.WriteFile(path, []byte("# favourites\nMetallica\n\nA-ha\n"), 0o600))

	opts := testOptions()
	opts.ArtistsFile = path

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats.ArtistsRetrieved)
}

func TestBuild_TopAndFollowedSupplementManualQueries(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 1)
	fake.topArtists = []artist.Artist{
		{ID: "met", Name: "Metallica"}, // already resolved, must dedupe
		{ID: "top1", Name: "Top One"},
	}
	fake.followed = []artist.Artist{{ID: "fol1", Name: "Followed One"}}
	fake.tops["top1"] = []track.Track{{ID: "tt1", Name: "T", Artists: []string{"Top One"}}}
	fake.tops["fol1"] = []track.Track{{ID: "ft1", Name: "F", Artists: []string{"Followed One"}}}

	opts := testOptions("Metallica")
	opts.TopArtists = true
	opts.FollowedArtists = true

	result, err := New(fake.deps()).Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.ArtistsRetrieved)
	assert.Len(t, result.PreparedURIs, 3)
}

func TestBuild_BlankNameFallsBackWithDateStamp(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 1)

	opts := testOptions("Metallica")
	opts.PlaylistName = "   "
	opts.DateStamp = true

	b := New(fake.deps())
	b.SetClock(func() time.Time { return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC) })

	result, err := b.Build(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "Untitled Playlist 2026-08-25", result.PlaylistName)
	assert.Equal(t, "Untitled Playlist 2026-08-25", result.Stats.PlaylistName)
}

func TestBuild_MissingUserID(t *testing.T) {
	fake := newFakeCatalog()
	fake.profile = Profile{}
	fake.addArtist("met", "Metallica", 1)

	_, err := New(fake.deps()).Build(context.Background(), testOptions("Metallica"))
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestBuild_NoArtists(t *testing.T) {
	fake := newFakeCatalog()

	_, err := New(fake.deps()).Build(context.Background(), testOptions("No Such Band"))
	assert.ErrorIs(t, err, ErrNoArtists)
}

func TestBuild_NoTracks(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 0)

	_, err := New(fake.deps()).Build(context.Background(), testOptions("Metallica"))
	assert.ErrorIs(t, err, ErrNoTracks)
}

func TestBuild_ArtistsFileMissing(t *testing.T) {
	fake := newFakeCatalog()

	opts := testOptions()
	opts.ArtistsFile = filepath.Join(t.TempDir(), "absent.txt")

	_, err := New(fake.deps()).Build(context.Background(), opts)
	assert.ErrorIs(t, err, ErrArtistsFile)
}

func TestBuild_MissingPlaylistSinkForUpload(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 1)

	deps := fake.deps()
	deps.Playlists = nil

	opts := testOptions("Metallica")
	opts.DryRun = false

	_, err := New(deps).Build(context.Background(), opts)
	assert.ErrorIs(t, err, ErrMissingDependencies)

	// A dry run without reuse never touches the sink.
	_, err = New(deps).Build(context.Background(), testOptions("Metallica"))
	assert.NoError(t, err)
}

func TestBuild_CollaboratorFailureIsMarked(t *testing.T) {
	fake := newFakeCatalog()
	fake.addArtist("met", "Metallica", 1)
	fake.topsErr = errors.New("boom")

	_, err := New(fake.deps()).Build(context.Background(), testOptions("Metallica"))
	assert.ErrorIs(t, err, ErrUnderlying)
}

func TestBuild_InvalidOptions(t *testing.T) {
	fake := newFakeCatalog()

	opts := testOptions("Metallica")
	opts.MaxTracks = 0

	_, err := New(fake.deps()).Build(context.Background(), opts)
	assert.Error(t, err)
}
