package plan

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

// Sanitize extracts the JSON object from a model reply. Code fences and any
// text before the first '{' or after the last '}' are dropped.
func Sanitize(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "\ufeff")

	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 {
			// language tag such as ```json
			if tag := strings.TrimSpace(cleaned[:nl]); !strings.ContainsAny(tag, "{}") {
				cleaned = cleaned[nl+1:]
			}
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	}

	start := strings.IndexByte(cleaned, '{')
	end := strings.LastIndexByte(cleaned, '}')
	if start < 0 || end < 0 || end < start {
		return "", fmt.Errorf("%w: no json object in model output", contractx.ErrPlanParse)
	}
	return cleaned[start : end+1], nil
}
