package tags

import (
	"context"
	"strings"

	"github.com/hrygo/circle/internal/observability"
	"github.com/hrygo/circle/store"
)

// RulesClassifier is the deterministic keyword classifier.
// Text containing a skill keyword is a skill, anything else is a need.
type RulesClassifier struct {
	skillKeywords []string
}

// NewRulesClassifier creates a rules classifier with the default keywords.
func NewRulesClassifier() *RulesClassifier {
	return &RulesClassifier{
		skillKeywords: []string{
			// Chinese role/action words
			"开发", "设计", "管理", "运营", "编程", "写作",
			// English equivalents, matched case-insensitively
			"develop", "design", "manage", "operat", "program", "writ",
			"engineer", "coding",
		},
	}
}

// Name returns the classifier name.
func (c *RulesClassifier) Name() string {
	return "rules"
}

// Classify never fails.
func (c *RulesClassifier) Classify(_ context.Context, text string) (*Classification, error) {
	observability.RecordClassification(c.Name())
	return c.classify(text), nil
}

func (c *RulesClassifier) classify(text string) *Classification {
	lower := strings.ToLower(text)
	category := store.TagCategoryNeed
	for _, keyword := range c.skillKeywords {
		if strings.Contains(lower, keyword) {
			category = store.TagCategorySkill
			break
		}
	}
	return &Classification{
		Category:   category,
		Confidence: DefaultConfidence,
		Source:     c.Name(),
	}
}
