// Package artist provides the Artist domain entity.
package artist

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Artist represents a catalog artist.
// Identity is the catalog ID; the display name is used only for
// matching and formatting.
type Artist struct {
	ID   string // Catalog artist ID
	Name string // Display name
}

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold normalizes a name for comparison: lower-cased, diacritics
// stripped, whitespace collapsed to single spaces.
func Fold(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	if stripped, _, err := transform.String(deaccent, folded); err == nil {
		folded = stripped
	}
	return strings.Join(strings.Fields(folded), " ")
}

// FoldedKey returns a canonical key for a set of artist names: each
// name folded, the set sorted, joined with "|". Two tracks credited to
// the same artists in any order produce the same key.
func FoldedKey(names []string) string {
	folded := make([]string, 0, len(names))
	for _, name := range names {
		if f := Fold(name); f != "" {
			folded = append(folded, f)
		}
	}
	if len(folded) == 0 {
		return ""
	}
	sort.Strings(folded)
	return strings.Join(folded, "|")
}
