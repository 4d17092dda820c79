package tags

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hrygo/circle/store"
)

const (
	// MaxSuggestions caps the number of suggestions returned for one profile.
	MaxSuggestions = 10
	// maxCandidateRunes drops fragments that are sentences rather than tags.
	maxCandidateRunes = 20
)

// Suggestion is a candidate tag extracted from profile text.
type Suggestion struct {
	Name       string            `json:"name"`
	Category   store.TagCategory `json:"category"`
	Confidence float64           `json:"confidence"`
}

// splitCandidates splits free text on list separators, full-width ones included.
func splitCandidates(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ',', '，', '、', ';', '；', '/', '\n':
			return true
		}
		return false
	})
	candidates := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" || utf8.RuneCountInString(field) > maxCandidateRunes {
			continue
		}
		candidates = append(candidates, field)
	}
	return candidates
}

// Suggest classifies every candidate tag found in the given profile texts.
// Duplicate names keep the highest confidence; the result is ordered by
// confidence desc then name asc and holds at most MaxSuggestions entries.
func Suggest(ctx context.Context, classifier Classifier, texts ...string) ([]*Suggestion, error) {
	byName := make(map[string]*Suggestion)
	for _, text := range texts {
		for _, name := range splitCandidates(text) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result, err := classifier.Classify(ctx, name)
			if err != nil {
				return nil, err
			}
			if existing, ok := byName[name]; ok && existing.Confidence >= result.Confidence {
				continue
			}
			byName[name] = &Suggestion{
				Name:       name,
				Category:   result.Category,
				Confidence: result.Confidence,
			}
		}
	}

	suggestions := make([]*Suggestion, 0, len(byName))
	for _, s := range byName {
		suggestions = append(suggestions, s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].Name < suggestions[j].Name
	})
	if len(suggestions) > MaxSuggestions {
		suggestions = suggestions[:MaxSuggestions]
	}
	return suggestions, nil
}

// NeedsTagCompletion reports whether a member should be prompted to fill in
// tags: true when either the skill or the need set is empty.
func NeedsTagCompletion(skillCount, needCount int) bool {
	return skillCount == 0 || needCount == 0
}
