package match

import (
	"strings"
	"unicode"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a player name for comparison: decompose, strip
// combining marks, lowercase, keep only letters, hyphens and spaces, then
// collapse runs of whitespace. Names that normalize to "" carry no usable
// identity and are skipped by the matcher.
func Normalize(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || r == '-' || r == ' ' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity scores two normalized names on the 0-100 scale. Four metrics
// are computed and the best one wins: plain ratio, partial-substring ratio,
// token-set ratio and token-sort ratio. The spread covers initials
// ("S. Mueanta"), name-order swaps and partial names.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	best := fuzzy.Ratio(a, b)
	if v := fuzzy.PartialRatio(a, b); v > best {
		best = v
	}
	if v := fuzzy.TokenSetRatio(a, b); v > best {
		best = v
	}
	if v := fuzzy.TokenSortRatio(a, b); v > best {
		best = v
	}
	return best
}
