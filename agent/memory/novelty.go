package memory

import (
	"regexp"
	"sort"
	"strings"
)

var (
	handleFact  = regexp.MustCompile(`(?:^|[^\w@])(@[A-Za-z0-9_]{2,15})`)
	hashtagFact = regexp.MustCompile(`(?:^|[^\w#])(#[\p{L}\p{N}_]{2,})`)
	urlFact     = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
	nameFact    = regexp.MustCompile(`(?:^|[^\p{L}])(\p{Lu}\p{Ll}+(?:\s+(?:de\s+|del\s+|la\s+)?\p{Lu}\p{Ll}+)+)`)
)

// ExtractFacts returns the concrete entities found in text: handles,
// hashtags, URLs and multi-word capitalised names. Facts are lowercased,
// unique and sorted.
func ExtractFacts(text string) []string {
	seen := map[string]struct{}{}
	add := func(s string) {
		s = strings.ToLower(strings.TrimRight(strings.TrimSpace(s), ".,;:"))
		if s != "" {
			seen[s] = struct{}{}
		}
	}

	for _, u := range urlFact.FindAllString(text, -1) {
		add(u)
	}
	stripped := urlFact.ReplaceAllString(text, " ")
	for _, m := range handleFact.FindAllStringSubmatch(stripped, -1) {
		add(m[1])
	}
	for _, m := range hashtagFact.FindAllStringSubmatch(stripped, -1) {
		add(m[1])
	}
	for _, m := range nameFact.FindAllStringSubmatch(stripped, -1) {
		add(strings.Join(strings.Fields(m[1]), " "))
	}

	facts := make([]string, 0, len(seen))
	for f := range seen {
		facts = append(facts, f)
	}
	sort.Strings(facts)
	return facts
}

// NovelFacts returns the facts not already present in known.
func NovelFacts(facts []string, known string) []string {
	known = strings.ToLower(known)
	var novel []string
	for _, f := range facts {
		if !strings.Contains(known, f) {
			novel = append(novel, f)
		}
	}
	return novel
}
