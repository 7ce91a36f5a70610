package specialist

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"

	contractx "github.com/tanpawarit/vizta/agent/contract"
	toolx "github.com/tanpawarit/vizta/agent/tool"
	"github.com/tanpawarit/vizta/pkg/pgstore"
)

var relevanceStopWords = map[string]struct{}{
	"tweets": {}, "tweet": {}, "sobre": {}, "dicen": {}, "dime": {}, "quiero": {},
	"para": {}, "desde": {}, "como": {}, "cuales": {}, "cuáles": {}, "qué": {},
	"que": {}, "los": {}, "las": {}, "del": {}, "una": {}, "con": {}, "por": {},
}

// Score rates a tool result 0..10: up to 6 points for how many informative
// query terms the result mentions and up to 4 for result volume.
func Score(query string, result contractx.ToolResult) int {
	if !result.Success {
		return 0
	}

	text := strings.ToLower(resultText(result))
	terms := queryTerms(query)
	coverage := 3
	if len(terms) > 0 {
		hit := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				hit++
			}
		}
		coverage = hit * 6 / len(terms)
	}

	return clampScore(coverage + volume(result))
}

func volume(result contractx.ToolResult) int {
	switch d := result.Data.(type) {
	case toolx.SocialData:
		return countBand(len(d.Items))
	case toolx.ProfileData:
		return countBand(len(d.Items))
	case toolx.MemoryData:
		return countBand(len(d.Records))
	case []pgstore.Project:
		return countBand(len(d))
	case []pgstore.CodexItem:
		return countBand(len(d))
	case []pgstore.ProjectDecision:
		return countBand(len(d))
	case contractx.Resolution:
		if d.Found && d.Confidence >= 9 {
			return 4
		}
		if d.Found {
			return 3
		}
		return 0
	case toolx.WebData:
		if len(d.Answer) > 200 {
			return 3
		}
		return 2
	default:
		return 1
	}
}

func countBand(n int) int {
	switch {
	case n == 0:
		return 0
	case n <= 2:
		return 1
	case n <= 5:
		return 2
	case n <= 10:
		return 3
	default:
		return 4
	}
}

func queryTerms(query string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	}) {
		if len([]rune(f)) <= 3 {
			continue
		}
		if _, stop := relevanceStopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// resultText is the content a result contributes to coverage. Echoed
// request fields such as the search query are left out.
func resultText(result contractx.ToolResult) string {
	var sb strings.Builder
	switch d := result.Data.(type) {
	case toolx.SocialData:
		writeContent(&sb, d.Items)
	case toolx.ProfileData:
		sb.WriteString(d.Handle)
		writeContent(&sb, d.Items)
	case toolx.WebData:
		sb.WriteString(d.Answer)
	case toolx.MemoryData:
		for _, r := range d.Records {
			sb.WriteString(r.Content)
			sb.WriteByte('\n')
		}
	case contractx.Resolution:
		sb.WriteString(d.Handle)
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(result.Data)
		sb.Write(buf.Bytes())
	}
	return sb.String()
}

func writeContent(sb *strings.Builder, items []contractx.ContentItem) {
	for _, it := range items {
		sb.WriteString(it.Author)
		sb.WriteByte(' ')
		sb.WriteString(it.Text)
		sb.WriteByte('\n')
	}
}

func clampScore(s int) int {
	return min(max(s, 0), 10)
}
