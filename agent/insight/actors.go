package insight

import (
	"regexp"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const maxActorsPerKind = 5

const (
	KindMention = "mention"
	KindHashtag = "hashtag"
)

var actorPattern = regexp.MustCompile(`([@#])([\p{L}\p{N}_]+)`)

type Actor struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// KeyActors counts the accounts mentioned and the hashtags used across
// items and keeps the most frequent of each. Names compare
// case-insensitively and keep their first spelling.
func KeyActors(items []contractx.ContentItem) []Actor {
	counts := map[string]*Actor{}
	var order []string
	for _, it := range items {
		for _, m := range actorPattern.FindAllStringSubmatch(it.Text, -1) {
			kind := KindMention
			if m[1] == "#" {
				kind = KindHashtag
			}
			key := m[1] + strings.ToLower(m[2])
			a, ok := counts[key]
			if !ok {
				a = &Actor{Name: m[1] + m[2], Kind: kind}
				counts[key] = a
				order = append(order, key)
			}
			a.Count++
		}
	}

	byKind := map[string][]Actor{}
	for _, key := range order {
		a := *counts[key]
		byKind[a.Kind] = append(byKind[a.Kind], a)
	}

	var out []Actor
	for _, kind := range []string{KindMention, KindHashtag} {
		list := byKind[kind]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Count > list[j].Count })
		if len(list) > maxActorsPerKind {
			list = list[:maxActorsPerKind]
		}
		out = append(out, list...)
	}
	return out
}
