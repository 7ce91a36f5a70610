package identity

import "time"

// Config holds the early-stop threshold and the confidence each strategy
// is allowed to claim.
type Config struct {
	Threshold           int               `envconfig:"THRESHOLD" default:"7"`
	DirectConfidence    int               `envconfig:"DIRECT_CONFIDENCE" split_words:"true" default:"10"`
	KnowledgeConfidence int               `envconfig:"KNOWLEDGE_CONFIDENCE" split_words:"true" default:"9"`
	WebConfidence       int               `envconfig:"WEB_CONFIDENCE" split_words:"true" default:"9"`
	SecondaryConfidence int               `envconfig:"SECONDARY_CONFIDENCE" split_words:"true" default:"7"`
	StrategyTimeout     time.Duration     `envconfig:"STRATEGY_TIMEOUT" split_words:"true" default:"20s"`
	KnowledgeHandles    map[string]string `envconfig:"KNOWLEDGE_HANDLES" split_words:"true"`
}

// DefaultConfig mirrors the envconfig defaults for callers that build a
// resolver without the environment.
func DefaultConfig() Config {
	return Config{
		Threshold:           7,
		DirectConfidence:    10,
		KnowledgeConfidence: 9,
		WebConfidence:       9,
		SecondaryConfidence: 7,
		StrategyTimeout:     20 * time.Second,
	}
}

// maxSecondaryConfidence keeps the secondary model below the direct,
// knowledge and web strategies.
const maxSecondaryConfidence = 7

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	if c.DirectConfidence <= 0 {
		c.DirectConfidence = d.DirectConfidence
	}
	if c.KnowledgeConfidence <= 0 {
		c.KnowledgeConfidence = d.KnowledgeConfidence
	}
	if c.WebConfidence <= 0 {
		c.WebConfidence = d.WebConfidence
	}
	if c.SecondaryConfidence <= 0 {
		c.SecondaryConfidence = d.SecondaryConfidence
	}
	c.SecondaryConfidence = min(c.SecondaryConfidence, maxSecondaryConfidence)
	return c
}
