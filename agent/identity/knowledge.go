package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var defaultKnowledge = map[string]string{
	"sandra torres":           "sandralto7",
	"congreso":                "CongresoGt",
	"congreso de guatemala":   "CongresoGt",
	"mp":                      "MP_Guatemala",
	"ministerio publico":      "MP_Guatemala",
	"bernardo arevalo":        "BArevalodeLeon",
	"presidente de guatemala": "BArevalodeLeon",
}

// Knowledge is a read-only map from normalised names to verified handles.
type Knowledge struct {
	entries map[string]string
}

// NewKnowledge merges extra entries over the built-in set. The result is
// never mutated after construction.
func NewKnowledge(extra map[string]string) *Knowledge {
	entries := make(map[string]string, len(defaultKnowledge)+len(extra))
	for k, v := range defaultKnowledge {
		entries[normalizeName(k)] = v
	}
	for k, v := range extra {
		key := normalizeName(k)
		handle := strings.TrimPrefix(strings.TrimSpace(v), "@")
		if key == "" || !validHandle(handle) {
			continue
		}
		entries[key] = handle
	}
	return &Knowledge{entries: entries}
}

func (k *Knowledge) Lookup(name string) (string, bool) {
	if k == nil {
		return "", false
	}
	h, ok := k.entries[normalizeName(name)]
	return h, ok
}

func (k *Knowledge) Len() int {
	if k == nil {
		return 0
	}
	return len(k.entries)
}

// normalizeName lowercases, strips accents and collapses whitespace.
func normalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}
