package insight

import (
	"strings"
	"unicode"
)

const (
	TonePositive = "positivo"
	ToneNegative = "negativo"
	ToneNeutral  = "neutral"

	toneBand = 0.2
)

var positiveWords = wordSet(
	"bueno", "buena", "excelente", "genial", "increíble", "fantástico", "maravilloso",
	"perfecto", "amor", "feliz", "alegría", "éxito", "victoria", "ganar", "logro",
	"progreso", "mejora", "esperanza", "optimista", "positivo", "bendición",
	"agradecido", "orgulloso", "satisfecho", "contento", "celebrar", "triunfo",
	"gloria", "honor", "aprobado", "avance", "apoyo",
)

var negativeWords = wordSet(
	"malo", "mala", "terrible", "horrible", "pésimo", "desastre", "fracaso", "error",
	"problema", "crisis", "conflicto", "guerra", "violencia", "odio", "tristeza",
	"dolor", "sufrimiento", "corrupción", "robo", "mentira", "traición", "injusticia",
	"preocupado", "triste", "enojado", "furioso", "decepcionado", "frustrado",
	"desesperado", "pérdida", "denuncia", "rechazo",
)

var intensifiers = map[string]float64{
	"muy": 1.5, "extremadamente": 2.0, "súper": 1.8, "bastante": 1.3,
	"realmente": 1.4, "totalmente": 1.6, "absolutamente": 1.8, "completamente": 1.7,
}

var diminishers = map[string]float64{
	"poco": 0.5, "apenas": 0.3, "ligeramente": 0.4, "algo": 0.6, "relativamente": 0.7,
}

var negations = wordSet("no", "nunca", "jamás", "ni", "tampoco", "sin")

var emojiScores = map[string]float64{
	"😊": 1, "😃": 1, "😄": 1, "😁": 1, "🙂": 0.5, "😍": 1.5, "❤️": 1.2, "👍": 1, "👏": 1, "🎉": 1.5,
	"😢": -1, "😭": -1.5, "😞": -1, "😔": -1, "😡": -1.5, "😠": -1.3, "🤬": -2, "💔": -1.5,
}

func wordSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Sentiment scores one text in [-1, 1] from a Spanish lexicon. The word
// before a scored word may intensify or soften it, and a negation in the
// two preceding words flips it.
func Sentiment(text string) float64 {
	words := tokenize(text)

	score, scored := 0.0, 0
	for i, w := range words {
		var s float64
		switch {
		case has(positiveWords, w):
			s = 1
		case has(negativeWords, w):
			s = -1
		default:
			continue
		}
		if i > 0 {
			if f, ok := intensifiers[words[i-1]]; ok {
				s *= f
			} else if f, ok := diminishers[words[i-1]]; ok {
				s *= f
			}
		}
		if negated(words, i) {
			s = -s
		}
		score += s
		scored++
	}

	for emoji, v := range emojiScores {
		if n := strings.Count(text, emoji); n > 0 {
			score += v * float64(n)
			scored += n
		}
	}

	if scored == 0 {
		return 0
	}
	return clamp(score/float64(scored), -1, 1)
}

func negated(words []string, i int) bool {
	for j := max(0, i-2); j < i; j++ {
		if has(negations, words[j]) {
			return true
		}
	}
	return false
}

// Tone names the band a sentiment score falls in.
func Tone(score float64) string {
	switch {
	case score > toneBand:
		return TonePositive
	case score < -toneBand:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

func has(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
