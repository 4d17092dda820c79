// Package tags classifies free-text tag submissions and turns member
// profile text into tag suggestions.
package tags

import (
	"context"
	"log/slog"

	"github.com/hrygo/circle/internal/profile"
	"github.com/hrygo/circle/store"
)

const (
	// DefaultConfidence is the fixed confidence of the rules classifier.
	DefaultConfidence = 0.8
	// DisagreementConfidence replaces the classifier confidence when the
	// caller's role disagrees with the classified category.
	DisagreementConfidence = 0.3
)

// Classifier maps a tag's text to a category and a confidence.
// Implementations are stateless with respect to the tag graph.
type Classifier interface {
	// Name returns the classifier name for logging/metrics.
	Name() string
	// Classify returns a category in {skill, need} and a confidence in [0, 1].
	Classify(ctx context.Context, text string) (*Classification, error)
}

// Classification is the result of classifying one tag text.
type Classification struct {
	Category   store.TagCategory `json:"category"`
	Confidence float64           `json:"confidence"`
	Source     string            `json:"source"` // "rules", "llm"
}

// ConfidenceForRole applies the role agreement rule: a skill or need role
// that matches the category keeps the classifier confidence, a mismatch is
// down-weighted to DisagreementConfidence. Other roles keep the confidence.
func (c *Classification) ConfidenceForRole(role store.TagRole) float64 {
	switch role {
	case store.TagRoleSkill, store.TagRoleNeed:
		if string(role) != string(c.Category) {
			return DisagreementConfidence
		}
	}
	return c.Confidence
}

// clampConfidence forces v into [0, 1].
func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewFromProfile returns the LLM classifier when it is enabled and configured,
// and the rules classifier otherwise.
func NewFromProfile(p *profile.Profile) Classifier {
	if !p.IsAIClassifierEnabled() {
		return NewRulesClassifier()
	}
	slog.Info("LLM tag classifier enabled", "base_url", p.AIBaseURL, "model", p.AIModel)
	return NewLLMClassifier(LLMConfig{
		APIKey:  p.AIAPIKey,
		BaseURL: p.AIBaseURL,
		Model:   p.AIModel,
	})
}
