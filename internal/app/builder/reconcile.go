package builder

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/app/shuffle"
	"github.com/eugener68/playlistbuilder/internal/domain/playlist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// writeChunk is the largest reference batch a single replace or append
// call may carry.
const writeChunk = 100

type reconcileOutcome struct {
	playlistID string
	added      []track.Reference
	upload     []track.Reference
	uploaded   int
	reused     bool
}

// reconcile merges the prepared list with the destination. With reuse
// disabled (or no match found) it creates a fresh destination and
// writes the prepared list; with a match it computes the new-only
// references and either truncates to the prepared list or appends the
// surviving existing tracks behind it. Dry runs compute added and
// upload exactly the same way but never call a write method.
func (b *Builder) reconcile(
	ctx context.Context,
	name, ownerID string,
	ordered []track.Track,
	prepared []track.Reference,
	seed int64,
	opts Options,
) (reconcileOutcome, error) {
	out := reconcileOutcome{
		added:  append([]track.Reference(nil), prepared...),
		upload: prepared,
	}

	var existing *playlist.Summary
	if opts.ReuseExisting {
		found, err := b.deps.Playlists.FindPlaylist(ctx, name, ownerID)
		if err != nil {
			return out, underlying(err, "failed to look up destination playlist")
		}
		existing = found
	}

	if existing == nil {
		if opts.DryRun {
			return out, nil
		}
		id, err := b.deps.Playlists.CreatePlaylist(ctx, ownerID, name, opts.Description, opts.Public)
		if err != nil {
			return out, underlying(err, "failed to create destination playlist")
		}
		if err := b.upload(ctx, id, prepared); err != nil {
			return out, err
		}
		out.playlistID = id
		out.uploaded = len(prepared)
		return out, nil
	}

	out.reused = true
	out.playlistID = existing.ID

	existingRefs, err := b.deps.Playlists.PlaylistTracks(ctx, existing.ID)
	if err != nil {
		return out, underlying(err, "failed to list destination tracks")
	}
	existingSet := make(map[track.Reference]bool, len(existingRefs))
	for _, ref := range existingRefs {
		existingSet[ref] = true
	}

	out.added = out.added[:0]
	for _, ref := range prepared {
		if !existingSet[ref] {
			out.added = append(out.added, ref)
		}
	}

	var upload []track.Reference
	if opts.Truncate {
		upload = append([]track.Reference(nil), prepared...)
		if len(upload) > opts.MaxTracks {
			upload = upload[:opts.MaxTracks]
		}
	} else {
		preparedSet := make(map[track.Reference]bool, len(prepared))
		for _, ref := range prepared {
			preparedSet[ref] = true
		}
		upload = append([]track.Reference(nil), prepared...)
		for _, ref := range existingRefs {
			if !preparedSet[ref] {
				upload = append(upload, ref)
			}
		}
	}
	if opts.Shuffle {
		upload = b.reshuffle(ordered, upload, seed)
		if opts.Truncate && len(upload) > opts.MaxTracks {
			upload = upload[:opts.MaxTracks]
		}
	}
	out.upload = upload

	if opts.DryRun {
		return out, nil
	}
	if err := b.upload(ctx, existing.ID, upload); err != nil {
		return out, err
	}
	if opts.Truncate {
		out.uploaded = len(upload)
	} else {
		out.uploaded = len(out.added)
	}
	return out, nil
}

// reshuffle re-applies the balanced shuffle to a combined upload list.
// References outside the assembled set carry no artist credits and
// share one bucket.
func (b *Builder) reshuffle(ordered []track.Track, upload []track.Reference, seed int64) []track.Reference {
	byRef := make(map[track.Reference]track.Track, len(ordered))
	for _, t := range ordered {
		byRef[t.URI()] = t
	}
	combined := make([]track.Track, len(upload))
	for i, ref := range upload {
		if t, ok := byRef[ref]; ok {
			combined[i] = t
		} else {
			combined[i] = track.Track{ID: ref.ID()}
		}
	}
	return track.URIs(shuffle.Balanced(combined, shuffle.NewRand(seed)))
}

// upload replaces the destination contents: one replace call with the
// first 100 references, append calls for the remainder in order. An
// empty list is a replace-with-empty.
func (b *Builder) upload(ctx context.Context, playlistID string, refs []track.Reference) error {
	first := refs
	if len(first) > writeChunk {
		first = refs[:writeChunk]
	}
	if err := b.deps.Playlists.ReplaceTracks(ctx, playlistID, first); err != nil {
		return underlying(err, "failed to replace playlist tracks")
	}
	for i := writeChunk; i < len(refs); i += writeChunk {
		end := min(i+writeChunk, len(refs))
		if err := b.deps.Playlists.AddTracks(ctx, playlistID, refs[i:end]); err != nil {
			return underlying(err, "failed to append playlist tracks")
		}
	}
	zlog.Debug().Msgf("uploaded playlist contents: playlist=%s refs=%d", playlistID, len(refs))
	return nil
}
