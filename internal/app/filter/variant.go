package filter

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// defaultKeywords mark a title as an alternate recording of a song.
var defaultKeywords = []string{
	"remaster", "remix", "mix", "live", "acoustic",
	"karaoke", "instrumental", "edit", "version",
}

var (
	bracketSpans = []*regexp.Regexp{
		regexp.MustCompile(`\(([^()]*)\)`),
		regexp.MustCompile(`\[([^\[\]]*)\]`),
		regexp.MustCompile(`\{([^{}]*)\}`),
	}
	dashSeparator = regexp.MustCompile(`\s+[-–—]\s+|:\s+`)
	emptyBrackets = regexp.MustCompile(`[(\[{]\s*[)\]}]`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// VariantKey groups alternate recordings of one song: the canonical
// artist-name set plus the canonical title with variant markers
// stripped.
type VariantKey struct {
	Artists string
	Title   string
}

// VariantSettings is the stage's config-settings shape.
type VariantSettings struct {
	ExtraKeywords []string `mapstructure:"extra_keywords"`
}

// VariantStage collapses alternate recordings (remaster, live,
// acoustic, remix, ...) of the same song to one canonical pick: the
// recording whose raw title carries the fewest variant markers.
type VariantStage struct {
	keywords []string
}

// NewVariantStage creates a variant filter with the default keyword set
// plus any extra keywords from the settings map.
func NewVariantStage(settings map[string]any) (*VariantStage, error) {
	var cfg VariantSettings
	if settings != nil {
		if err := mapstructure.Decode(settings, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode variant filter settings")
		}
	}
	keywords := make([]string, 0, len(defaultKeywords)+len(cfg.ExtraKeywords))
	keywords = append(keywords, defaultKeywords...)
	for _, kw := range cfg.ExtraKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &VariantStage{keywords: keywords}, nil
}

// Name returns the stage name.
func (s *VariantStage) Name() string {
	return "variant"
}

// Apply groups tracks by variant key and keeps, per group, the single
// track with the lowest variant score (ties favor the earliest
// occurrence). The original relative order of kept tracks is preserved.
func (s *VariantStage) Apply(tracks []track.Track) ([]track.Track, int) {
	type pick struct {
		index int
		score int
	}
	best := make(map[VariantKey]pick, len(tracks))
	for i, t := range tracks {
		key := s.Key(t)
		score := s.Score(t.Name)
		if cur, ok := best[key]; !ok || score < cur.score {
			best[key] = pick{index: i, score: score}
		}
	}
	kept := make([]track.Track, 0, len(best))
	for i, t := range tracks {
		if best[s.Key(t)].index == i {
			kept = append(kept, t)
		}
	}
	return kept, len(tracks) - len(kept)
}

// Key derives the grouping key for a track.
func (s *VariantStage) Key(t track.Track) VariantKey {
	return VariantKey{
		Artists: artist.FoldedKey(t.Artists),
		Title:   s.CanonicalTitle(t.Name),
	}
}

// CanonicalTitle strips variant markers from a title: bracketed spans
// whose inner text contains a variant keyword, then any dash/colon
// suffix containing one, then whitespace collapse and lower-casing.
func (s *VariantStage) CanonicalTitle(title string) string {
	text := title
	for changed := true; changed; {
		changed = false
		for _, re := range bracketSpans {
			stripped := re.ReplaceAllStringFunc(text, func(span string) string {
				if s.containsKeyword(span) {
					return ""
				}
				return span
			})
			if stripped != text {
				text = stripped
				changed = true
			}
		}
		// Stripping an inner span can leave an empty outer pair behind.
		if stripped := emptyBrackets.ReplaceAllString(text, ""); stripped != text {
			text = stripped
			changed = true
		}
	}
	if loc := dashSeparator.FindStringIndex(text); loc != nil {
		if s.containsKeyword(text[loc[1]:]) {
			text = text[:loc[0]]
		}
	}
	text = whitespace.ReplaceAllString(strings.TrimSpace(text), " ")
	return artist.Fold(text)
}

// Score rates how "variant-like" a raw title looks: +10 per distinct
// keyword present, +1 for a bracket, +1 for a dash/colon separator.
// The original recording of a song scores lowest within its group.
func (s *VariantStage) Score(title string) int {
	lower := strings.ToLower(title)
	score := 0
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			score += 10
		}
	}
	if strings.ContainsAny(lower, "([{") {
		score++
	}
	if dashSeparator.MatchString(lower) {
		score++
	}
	return score
}

func (s *VariantStage) containsKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range s.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
