// Package track provides the Track domain entity.
package track

import (
	"fmt"
	"strings"
)

// Track represents a catalog track.
// Identity is the catalog ID; Artists is the ordered list of
// contributing artist display names, primary first.
type Track struct {
	ID      string   // Catalog track ID
	Name    string   // Track title
	Artists []string // Contributing artist names
}

// Reference is a track resolved to its playable URI form, the unit
// stored in a playlist ("spotify:track:<id>").
type Reference string

const uriPrefix = "spotify:track:"

// URI returns the playlist reference for the track.
func (t Track) URI() Reference {
	return Reference(uriPrefix + t.ID)
}

// PrimaryArtist returns the first credited artist, or "".
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Display renders the track as "Artist1, Artist2 – Title".
func (t Track) Display() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s – %s", strings.Join(t.Artists, ", "), t.Name)
}

// ID extracts the bare catalog ID from a reference.
func (r Reference) ID() string {
	return strings.TrimPrefix(string(r), uriPrefix)
}

// URIs maps tracks to their playlist references in order.
func URIs(tracks []Track) []Reference {
	refs := make([]Reference, len(tracks))
	for i, t := range tracks {
		refs[i] = t.URI()
	}
	return refs
}
