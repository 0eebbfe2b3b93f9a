package perception

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

// ProtectedPrefixes are predicate prefixes the partial-observability mask
// never drops, regardless of obs_mask_prob.
var ProtectedPrefixes = []string{"posture:", "hazard:cliff:", "proximity:shelter:"}

func isProtected(token string) bool {
	for _, p := range ProtectedPrefixes {
		if strings.HasPrefix(token, p) {
			return true
		}
	}
	return false
}

// maskRand returns a deterministic source seeded from (seed, stepIndex) so
// masking is reproducible for the same step reference.
func maskRand(seed int64, stepIndex int) *rand.Rand {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", seed, stepIndex)
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// MaskPredicates drops each non-protected predicate independently with
// probability p, seeded by (seed, stepIndex) for reproducibility. If p<=0
// it is a strict no-op. If every predicate would be dropped and the
// original list was non-empty, the first original predicate is kept.
func MaskPredicates(predicates []string, p float64, seed int64, stepIndex int) []string {
	if p <= 0 || len(predicates) == 0 {
		return append([]string(nil), predicates...)
	}
	rng := maskRand(seed, stepIndex)
	out := make([]string, 0, len(predicates))
	for _, pred := range predicates {
		if isProtected(pred) || rng.Float64() >= p {
			out = append(out, pred)
		}
	}
	if len(out) == 0 {
		out = append(out, predicates[0])
	}
	return out
}

// MaskCues drops each cue independently with probability p, seeded by
// (seed, stepIndex+1) so cue and predicate masking draws are independent
// while remaining reproducible. Cues have no protected prefixes.
func MaskCues(cues []string, p float64, seed int64, stepIndex int) []string {
	if p <= 0 || len(cues) == 0 {
		return append([]string(nil), cues...)
	}
	rng := maskRand(seed, stepIndex+1)
	out := make([]string, 0, len(cues))
	for _, c := range cues {
		if rng.Float64() >= p {
			out = append(out, c)
		}
	}
	return out
}
