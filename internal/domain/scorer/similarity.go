package scorer

import (
	"math"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Ratio returns the normalised similarity of two strings in [0, 100],
// computed from their insert/delete edit distance.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return ratioRunes([]rune(a), []rune(b))
}

// PartialRatio returns the best Ratio of the shorter string against every
// window of the longer string with the same length.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}

	best := 0
	for start := 0; start+len(short) <= len(long); start++ {
		r := ratioRunes(short, long[start:start+len(short)])
		if r > best {
			best = r
		}
		if best == 100 {
			break
		}
	}
	return best
}

func ratioRunes(a, b []rune) int {
	// DefaultOptions weighs a substitution as delete+insert.
	r := levenshtein.RatioForStrings(a, b, levenshtein.DefaultOptions)
	return int(math.RoundToEven(r * 100))
}
