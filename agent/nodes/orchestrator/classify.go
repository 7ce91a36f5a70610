package orchestratornode

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vizta/agent/contract"
)

const (
	SourcePhrase = "phrase"
	SourceModel  = "model"
	SourceRules  = "rules"
)

const (
	replyGreeting   = "¡Hola! Soy Vizta. Puedo revisar lo que se dice en redes, buscar perfiles y consultar tus proyectos y documentos. ¿Qué quieres saber?"
	replyThanks     = "¡Con gusto! Si necesitas algo más, aquí estoy."
	replyCapability = "Puedo buscar publicaciones y tendencias en redes, identificar la cuenta de una persona o institución, investigar en la web y consultar tus proyectos, tu codex y tus decisiones."
	replyFallback   = "¿En qué te puedo ayudar?"
)

var cannedPhrases = map[string]string{
	"hola":             replyGreeting,
	"hola vizta":       replyGreeting,
	"buenas":           replyGreeting,
	"buenos dias":      replyGreeting,
	"buenos días":      replyGreeting,
	"buenas tardes":    replyGreeting,
	"buenas noches":    replyGreeting,
	"saludos":          replyGreeting,
	"hey":              replyGreeting,
	"hi":               replyGreeting,
	"hello":            replyGreeting,
	"gracias":          replyThanks,
	"muchas gracias":   replyThanks,
	"mil gracias":      replyThanks,
	"thanks":           replyThanks,
	"thank you":        replyThanks,
	"que puedes hacer": replyCapability,
	"qué puedes hacer": replyCapability,
	"quien eres":       replyCapability,
	"quién eres":       replyCapability,
	"ayuda":            replyCapability,
	"help":             replyCapability,
	"what can you do":  replyCapability,
}

// CannedReply returns the fixed reply for greeting, thanks and capability
// phrases. Matching ignores case and punctuation.
func CannedReply(text string) (string, bool) {
	reply, ok := cannedPhrases[normalizePhrase(text)]
	return reply, ok
}

func normalizePhrase(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

// MatchPhrase answers greeting, thanks and capability phrases before any
// collaborator is touched.
func MatchPhrase(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if reply, ok := CannedReply(in.Query.Text); ok {
		in.Classification = contractx.Classification{
			Intent: contractx.IntentConversational,
			Reply:  reply,
			Source: SourcePhrase,
		}
	}
	return in, nil
}

// Phrased reports whether MatchPhrase already answered the query.
func Phrased(in *GraphState) bool {
	return in != nil && in.Classification.Source == SourcePhrase
}

// Classify decides between a conversational reply and agent work. Canned
// phrases never reach the classifier; a failing classifier falls back to
// keyword rules.
func Classify(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if _, err := MatchPhrase(in); err != nil || Phrased(in) {
		return in, err
	}

	if classifier != nil {
		c, err := classifier.Classify(ctx, in.Query, in.History)
		if err == nil {
			c.Source = SourceModel
			in.Classification = c
			return in, nil
		}
		log.Ctx(ctx).Warn().Err(err).Msg("classifier failed, using keyword rules")
	}

	in.Classification = contractx.Classification{
		Intent: contractx.IntentAgentic,
		Agents: KeywordAgents(in.Query.Text),
		Source: SourceRules,
	}
	return in, nil
}

// ConversationalReply answers without calling any agent.
func ConversationalReply(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	reply := strings.TrimSpace(in.Classification.Reply)
	if reply == "" {
		reply = replyFallback
	}
	in.Response = contractx.Response{
		Success: true,
		Intent:  contractx.IntentConversational,
		Message: reply,
	}
	return in, nil
}
