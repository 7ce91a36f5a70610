package tool

import (
	"strings"
	"unicode"
	"unicode/utf8"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const (
	longQueryRunes = 50
	maxQueryTerms  = 8
	shortQueryMax  = 2
)

var stopWords = map[string]struct{}{
	"que": {}, "del": {}, "las": {}, "los": {}, "una": {}, "uno": {},
	"para": {}, "con": {}, "por": {}, "desde": {}, "sobre": {}, "como": {},
	"the": {}, "and": {}, "for": {}, "about": {},
}

type localeTerm struct {
	word string
	term string
}

// Checked in order; the first word present wins.
var localeTerms = []localeTerm{
	{word: "guatemala", term: "#Guatemala"},
	{word: "congreso", term: "#CongresoGt"},
	{word: "presidente", term: "presidente guatemala"},
	{word: "sismos", term: "#SismosGT"},
	{word: "sismo", term: "#SismosGT"},
	{word: "politica", term: "política guatemala"},
	{word: "política", term: "política guatemala"},
}

// Normalizer rewrites content-search arguments to raise recall without
// changing intent.
type Normalizer struct {
	DefaultLocation string
}

// Args returns a normalised copy of args; the input map is not modified.
func (n Normalizer) Args(tool contractx.ToolID, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	if tool != contractx.ToolSocialSearch {
		return out
	}

	query, _ := out["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return out
	}
	out["query"] = n.Query(query)
	return out
}

func (n Normalizer) Query(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if utf8.RuneCountInString(query) > longQueryRunes {
		query = shorten(query)
	}
	if len(strings.Fields(query)) <= shortQueryMax {
		query = n.augment(query)
	}
	return query
}

func shorten(query string) string {
	terms := make([]string, 0, maxQueryTerms)
	for _, raw := range strings.Fields(query) {
		word := strings.Trim(raw, ",.;:¿?¡!\"'()")
		if word == "" {
			continue
		}
		lower := strings.ToLower(word)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		terms = append(terms, word)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	if len(terms) == 0 {
		return query
	}
	return strings.Join(terms, " ")
}

func (n Normalizer) augment(query string) string {
	lower := strings.ToLower(query)
	for _, w := range strings.Fields(lower) {
		w = strings.TrimLeft(w, "#@")
		for _, lt := range localeTerms {
			if w != lt.word {
				continue
			}
			if strings.Contains(lower, strings.ToLower(lt.term)) {
				return query
			}
			return query + " " + lt.term
		}
	}

	loc := strings.TrimSpace(n.DefaultLocation)
	if loc == "" {
		loc = "Guatemala"
	}
	if strings.Contains(lower, strings.ToLower(loc)) {
		return query
	}
	return query + " " + capitalize(loc)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
