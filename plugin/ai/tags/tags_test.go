package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/internal/profile"
	"github.com/hrygo/circle/store"
)

func TestRulesClassifier(t *testing.T) {
	c := NewRulesClassifier()
	tests := []struct {
		text     string
		category store.TagCategory
	}{
		{"前端开发", store.TagCategorySkill},
		{"UI设计", store.TagCategorySkill},
		{"项目管理", store.TagCategorySkill},
		{"内容运营", store.TagCategorySkill},
		{"Python编程", store.TagCategorySkill},
		{"技术写作", store.TagCategorySkill},
		{"Backend Development", store.TagCategorySkill},
		{"找投资", store.TagCategoryNeed},
		{"学英语", store.TagCategoryNeed},
		{"Figma", store.TagCategoryNeed},
		{"", store.TagCategoryNeed},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, DefaultConfidence, result.Confidence)
			assert.Equal(t, "rules", result.Source)
		})
	}
}

func TestConfidenceForRole(t *testing.T) {
	skill := &Classification{Category: store.TagCategorySkill, Confidence: 0.8}
	assert.Equal(t, 0.8, skill.ConfidenceForRole(store.TagRoleSkill))
	assert.Equal(t, DisagreementConfidence, skill.ConfidenceForRole(store.TagRoleNeed))
	assert.Equal(t, 0.8, skill.ConfidenceForRole(store.TagRoleCatalog))
	assert.Equal(t, 0.8, skill.ConfidenceForRole(""))

	need := &Classification{Category: store.TagCategoryNeed, Confidence: 0.65}
	assert.Equal(t, DisagreementConfidence, need.ConfidenceForRole(store.TagRoleSkill))
	assert.Equal(t, 0.65, need.ConfidenceForRole(store.TagRoleNeed))
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantErr    bool
		category   store.TagCategory
		confidence float64
	}{
		{name: "plain", content: `{"category":"skill","confidence":0.9}`, category: store.TagCategorySkill, confidence: 0.9},
		{name: "code fence", content: "```json\n{\"category\":\"need\",\"confidence\":0.7}\n```", category: store.TagCategoryNeed, confidence: 0.7},
		{name: "upper case category", content: `{"category":"SKILL","confidence":0.5}`, category: store.TagCategorySkill, confidence: 0.5},
		{name: "clamped high", content: `{"category":"need","confidence":1.7}`, category: store.TagCategoryNeed, confidence: 1},
		{name: "clamped low", content: `{"category":"need","confidence":-0.2}`, category: store.TagCategoryNeed, confidence: 0},
		{name: "method is out of contract", content: `{"category":"method","confidence":0.9}`, wantErr: true},
		{name: "missing confidence", content: `{"category":"skill"}`, wantErr: true},
		{name: "not json", content: `skill`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseClassification(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.category, result.Category)
			assert.InDelta(t, tt.confidence, result.Confidence, 1e-9)
			assert.Equal(t, "llm", result.Source)
		})
	}
}

// newFakeOpenAI serves chat completions whose message content is produced by reply.
func newFakeOpenAI(t *testing.T, calls *atomic.Int32, reply func() (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		status, content := reply()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"message":"upstream unavailable","type":"server_error"}}`)
			return
		}
		body := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMClassifier(t *testing.T) {
	var calls atomic.Int32
	srv := newFakeOpenAI(t, &calls, func() (int, string) {
		return http.StatusOK, `{"category":"need","confidence":0.95}`
	})
	c := NewLLMClassifier(LLMConfig{APIKey: "test", BaseURL: srv.URL, Model: "test-model"})

	result, err := c.Classify(context.Background(), "前端开发")
	require.NoError(t, err)
	assert.Equal(t, store.TagCategoryNeed, result.Category)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "llm", result.Source)

	// Second call is served from the cache.
	_, err = c.Classify(context.Background(), "前端开发")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLLMClassifierFallback(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "bad json", status: http.StatusOK, reply: "I think it is a skill"},
		{name: "out of contract category", status: http.StatusOK, reply: `{"category":"method","confidence":0.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newFakeOpenAI(t, &calls, func() (int, string) { return tt.status, tt.reply })
			c := NewLLMClassifier(LLMConfig{APIKey: "test", BaseURL: srv.URL})

			result, err := c.Classify(context.Background(), "UI设计")
			require.NoError(t, err)
			assert.Equal(t, store.TagCategorySkill, result.Category)
			assert.Equal(t, DefaultConfidence, result.Confidence)
			assert.Equal(t, "rules", result.Source)

			// Fallback results are not cached.
			_, err = c.Classify(context.Background(), "UI设计")
			require.NoError(t, err)
			assert.Equal(t, int32(2), calls.Load())
		})
	}
}

func TestNewFromProfile(t *testing.T) {
	assert.Equal(t, "rules", NewFromProfile(&profile.Profile{}).Name())
	assert.Equal(t, "rules", NewFromProfile(&profile.Profile{AIClassifierEnabled: true}).Name())
	assert.Equal(t, "llm", NewFromProfile(&profile.Profile{AIClassifierEnabled: true, AIAPIKey: "k"}).Name())
}

func TestSplitCandidates(t *testing.T) {
	got := splitCandidates("前端开发，UI设计、产品经理; 找投资；React/Vue\n 学英语 ,,")
	assert.Equal(t, []string{"前端开发", "UI设计", "产品经理", "找投资", "React", "Vue", "学英语"}, got)

	got = splitCandidates("我在一家互联网公司做了十多年的后端架构和团队管理工作，学英语")
	assert.Equal(t, []string{"学英语"}, got)
}

// fixedClassifier returns a per-text confidence.
type fixedClassifier map[string]float64

func (f fixedClassifier) Name() string { return "fixed" }

func (f fixedClassifier) Classify(_ context.Context, text string) (*Classification, error) {
	return &Classification{Category: store.TagCategorySkill, Confidence: f[text], Source: "fixed"}, nil
}

func TestSuggest(t *testing.T) {
	ctx := context.Background()

	t.Run("rules", func(t *testing.T) {
		suggestions, err := Suggest(ctx, NewRulesClassifier(), "前端开发、UI设计", "找投资,前端开发")
		require.NoError(t, err)
		require.Len(t, suggestions, 3)
		names := []string{suggestions[0].Name, suggestions[1].Name, suggestions[2].Name}
		assert.ElementsMatch(t, []string{"前端开发", "UI设计", "找投资"}, names)
		for _, s := range suggestions {
			if s.Name == "找投资" {
				assert.Equal(t, store.TagCategoryNeed, s.Category)
			} else {
				assert.Equal(t, store.TagCategorySkill, s.Category)
			}
		}
	})

	t.Run("ranked and capped", func(t *testing.T) {
		classifier := fixedClassifier{}
		text := ""
		for i := 0; i < 15; i++ {
			name := fmt.Sprintf("tag%02d", i)
			classifier[name] = float64(i) / 20
			text += name + ","
		}
		suggestions, err := Suggest(ctx, classifier, text)
		require.NoError(t, err)
		require.Len(t, suggestions, MaxSuggestions)
		assert.Equal(t, "tag14", suggestions[0].Name)
		assert.Equal(t, "tag05", suggestions[MaxSuggestions-1].Name)
	})

	t.Run("empty text", func(t *testing.T) {
		suggestions, err := Suggest(ctx, NewRulesClassifier(), "", " ,、 ")
		require.NoError(t, err)
		assert.Empty(t, suggestions)
	})

	t.Run("canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Suggest(canceled, NewRulesClassifier(), "前端开发")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNeedsTagCompletion(t *testing.T) {
	assert.True(t, NeedsTagCompletion(0, 0))
	assert.True(t, NeedsTagCompletion(2, 0))
	assert.True(t, NeedsTagCompletion(0, 1))
	assert.False(t, NeedsTagCompletion(1, 1))
}

func TestClassificationCache(t *testing.T) {
	c := newClassificationCache(2, time.Minute)
	c.Set("a", &Classification{Category: store.TagCategorySkill, Confidence: 0.1})
	c.Set("b", &Classification{Category: store.TagCategorySkill, Confidence: 0.2})
	_, ok := c.Get("a") // a becomes most recent
	require.True(t, ok)
	c.Set("c", &Classification{Category: store.TagCategoryNeed, Confidence: 0.3})

	assert.Equal(t, 2, c.Size())
	_, ok = c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")

	got, ok := c.Get("c")
	require.True(t, ok)
	got.Confidence = 0.9
	again, _ := c.Get("c")
	assert.Equal(t, 0.3, again.Confidence, "Get returns a copy")

	expired := newClassificationCache(2, time.Nanosecond)
	expired.Set("x", &Classification{})
	time.Sleep(time.Millisecond)
	_, ok = expired.Get("x")
	assert.False(t, ok)
}
