// Package insight derives tone, key actors and momentum from social
// content without calling any external service.
package insight

import (
	contractx "github.com/tanpawarit/vizta/agent/contract"
)

type Insight struct {
	Sentiment     float64   `json:"sentiment"`
	Tone          string    `json:"tone"`
	ItemSentiment []float64 `json:"item_sentiment,omitempty"`
	KeyActors     []Actor   `json:"key_actors,omitempty"`
	Momentum      float64   `json:"momentum"`
}

// Analyze scores every item and the collection as a whole. The collection
// sentiment is the mean over items with text.
func Analyze(items []contractx.ContentItem) Insight {
	out := Insight{Tone: ToneNeutral}
	if len(items) == 0 {
		return out
	}

	out.ItemSentiment = make([]float64, len(items))
	sum, n := 0.0, 0
	for i, it := range items {
		if it.Text == "" {
			continue
		}
		s := Sentiment(it.Text)
		out.ItemSentiment[i] = s
		sum += s
		n++
	}
	if n > 0 {
		out.Sentiment = clamp(sum/float64(n), -1, 1)
	}
	out.Tone = Tone(out.Sentiment)
	out.KeyActors = KeyActors(items)
	out.Momentum = Momentum(items)
	return out
}
