package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

var (
	//go:embed template/social.txt
	socialRaw string

	//go:embed template/personal.txt
	personalRaw string

	//go:embed template/classifier.txt
	classifierRaw string

	//go:embed template/handle_url.txt
	handleURLRaw string

	//go:embed template/handle_secondary.txt
	handleSecondaryRaw string

	//go:embed template/profile_context.txt
	profileContextRaw string

	//go:embed template/profile_analysis.txt
	profileAnalysisRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Social          string
	Personal        string
	Classifier      string
	HandleURL       string
	HandleSecondary string
	ProfileContext  string
	ProfileAnalysis string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Social:          strings.TrimSpace(socialRaw),
		Personal:        strings.TrimSpace(personalRaw),
		Classifier:      strings.TrimSpace(classifierRaw),
		HandleURL:       strings.TrimSpace(handleURLRaw),
		HandleSecondary: strings.TrimSpace(handleSecondaryRaw),
		ProfileContext:  strings.TrimSpace(profileContextRaw),
		ProfileAnalysis: strings.TrimSpace(profileAnalysisRaw),
	}
}

// RenderConversation formats a system template plus the user input as
// role-tagged messages. vars must hold "input".
func RenderConversation(ctx context.Context, system string, vars map[string]any) ([]*schema.Message, error) {
	template := einoprompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(system),
		schema.UserMessage("{{.input}}"),
	)
	msgs, err := template.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format conversation prompt: %w", err)
	}
	return msgs, nil
}

// RenderText formats a single-message template.
func RenderText(ctx context.Context, tpl string, vars map[string]any) (string, error) {
	msgs, err := einoprompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl)).Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("format prompt: %w", err)
	}
	if len(msgs) == 0 {
		return "", fmt.Errorf("format prompt: no message produced")
	}
	return strings.TrimSpace(msgs[0].Content), nil
}
