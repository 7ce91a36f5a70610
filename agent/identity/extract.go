package identity

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	handlePattern   = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
	atHandlePattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_@])@([A-Za-z0-9_]{1,15})\b`)
	urlPattern      = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// Paths on the platform host that are never profiles.
var reservedPaths = map[string]struct{}{
	"home": {}, "search": {}, "explore": {}, "i": {}, "intent": {},
	"hashtag": {}, "share": {}, "settings": {}, "login": {}, "notifications": {},
}

var profileHosts = map[string]struct{}{
	"x.com": {}, "twitter.com": {}, "mobile.twitter.com": {}, "mobile.x.com": {},
}

func validHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// ExplicitHandle reports whether the input is already a handle: "@name" or
// a profile URL.
func ExplicitHandle(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if strings.HasPrefix(s, "@") {
		h := strings.TrimPrefix(s, "@")
		if validHandle(h) {
			return h, true
		}
		return "", false
	}
	if urlPattern.FindString(s) == s && s != "" {
		return handleFromProfileURL(s)
	}
	return "", false
}

// HandleFromURL extracts the handle from text expected to hold a single
// canonical profile URL. Several distinct profiles, non-profile paths or
// no URL at all are reported as not found.
func HandleFromURL(text string) (string, bool) {
	found := ""
	for _, raw := range urlPattern.FindAllString(text, -1) {
		h, ok := handleFromProfileURL(raw)
		if !ok {
			continue
		}
		if found != "" && !strings.EqualFold(found, h) {
			return "", false
		}
		found = h
	}
	return found, found != ""
}

func handleFromProfileURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimRight(raw, ".,;:"))
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if _, ok := profileHosts[host]; !ok {
		return "", false
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) != 1 {
		return "", false
	}
	h := strings.TrimPrefix(segments[0], "@")
	if _, reserved := reservedPaths[strings.ToLower(h)]; reserved {
		return "", false
	}
	if !validHandle(h) {
		return "", false
	}
	return h, true
}

// HandleFromAnswer reads a free-text model answer: a profile URL wins,
// otherwise exactly one distinct @handle is accepted.
func HandleFromAnswer(text string) (string, bool) {
	if h, ok := HandleFromURL(text); ok {
		return h, true
	}
	found := ""
	for _, m := range atHandlePattern.FindAllStringSubmatch(text, -1) {
		h := m[1]
		if found != "" && !strings.EqualFold(found, h) {
			return "", false
		}
		found = h
	}
	if found == "" {
		s := strings.Trim(strings.TrimSpace(text), "`\"'.")
		if validHandle(s) && !IsNone(s) {
			return s, true
		}
	}
	return found, found != ""
}

// IsNone reports an explicit "no result" answer.
func IsNone(text string) bool {
	s := strings.ToUpper(strings.Trim(strings.TrimSpace(text), "`\"'.!*"))
	return s == "NONE" || s == "NINGUNO" || s == "N/A"
}
