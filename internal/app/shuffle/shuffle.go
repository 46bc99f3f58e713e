// Package shuffle provides the deterministic seeded generator and the
// artist-balanced shuffle used to order assembled track lists.
package shuffle

import (
	"sort"
	"time"

	"github.com/eugener68/playlistbuilder/internal/domain/artist"
	"github.com/eugener68/playlistbuilder/internal/domain/track"
)

// fallbackSeed is used when no seed is configured and the clock-derived
// seed resolves to zero.
const fallbackSeed int64 = 0x5DEECE66D

// Rand is a deterministic linear congruential generator. The same seed
// always produces the same sequence, so shuffled orders are
// reproducible in tests and across runs.
type Rand struct {
	state uint64
}

// NewRand creates a generator from an explicit seed.
func NewRand(seed int64) *Rand {
	return &Rand{state: uint64(seed)}
}

// SeedFrom derives the build seed: the configured seed if present,
// otherwise the build timestamp, with a fixed fallback when that
// resolves to zero.
func SeedFrom(configured *int64, now time.Time) int64 {
	if configured != nil {
		return *configured
	}
	seed := now.UnixNano()
	if seed == 0 {
		seed = fallbackSeed
	}
	return seed
}

// Uint64 advances the generator. Knuth's MMIX multiplier and increment.
func (r *Rand) Uint64() uint64 {
	r.state = r.state*6364136223846793005 + 1442695040888963407
	return r.state
}

// Intn returns a value in [0, n). n must be > 0.
func (r *Rand) Intn(n int) int {
	// Upper bits have the better distribution in an LCG.
	return int((r.Uint64() >> 16) % uint64(n))
}

// Shuffle performs a Fisher-Yates shuffle over n elements.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		swap(i, j)
	}
}

// Balanced shuffles tracks while spreading same-artist entries apart.
// Tracks are bucketed by canonical artist key, each bucket is shuffled,
// then the next track is repeatedly drawn from the bucket holding the
// most remaining tracks (generator-driven tiebreak), never the bucket
// drawn from last unless it is the only one left. Fewer than 3 tracks
// fall back to a plain shuffle.
func Balanced(tracks []track.Track, r *Rand) []track.Track {
	out := make([]track.Track, len(tracks))
	copy(out, tracks)
	if len(out) < 3 {
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}

	buckets := make(map[string][]track.Track)
	keys := make([]string, 0)
	for _, t := range out {
		key := artist.FoldedKey(t.Artists)
		if _, ok := buckets[key]; !ok {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], t)
	}
	// Map iteration order is nondeterministic; keep bucket order fixed
	// so the generator fully determines the result.
	sort.Strings(keys)
	for _, key := range keys {
		b := buckets[key]
		r.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })
	}

	result := make([]track.Track, 0, len(out))
	prev := ""
	for len(result) < len(out) {
		key := pickBucket(keys, buckets, prev, r)
		b := buckets[key]
		result = append(result, b[len(b)-1])
		buckets[key] = b[:len(b)-1]
		prev = key
	}
	return result
}

// pickBucket selects the non-empty bucket with the most remaining
// tracks, breaking size ties with the generator and refusing the
// previously drawn bucket unless every remaining track is in it.
func pickBucket(keys []string, buckets map[string][]track.Track, prev string, r *Rand) string {
	best := make([]string, 0, len(keys))
	bestSize := 0
	onlyPrev := true
	for _, key := range keys {
		size := len(buckets[key])
		if size == 0 {
			continue
		}
		if key != prev {
			onlyPrev = false
		}
		if size > bestSize {
			bestSize = size
			best = best[:0]
		}
		if size == bestSize {
			best = append(best, key)
		}
	}
	if onlyPrev {
		return prev
	}
	// Drop the previous bucket from the candidates; if that empties
	// them, fall back to the largest bucket other than prev.
	candidates := best[:0]
	for _, key := range best {
		if key != prev {
			candidates = append(candidates, key)
		}
	}
	if len(candidates) == 0 {
		return nextLargest(keys, buckets, prev, r)
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[r.Intn(len(candidates))]
}

// nextLargest returns the largest non-empty bucket excluding prev.
func nextLargest(keys []string, buckets map[string][]track.Track, prev string, r *Rand) string {
	best := make([]string, 0, len(keys))
	bestSize := 0
	for _, key := range keys {
		size := len(buckets[key])
		if size == 0 || key == prev {
			continue
		}
		if size > bestSize {
			bestSize = size
			best = best[:0]
		}
		if size == bestSize {
			best = append(best, key)
		}
	}
	if len(best) == 1 {
		return best[0]
	}
	return best[r.Intn(len(best))]
}
