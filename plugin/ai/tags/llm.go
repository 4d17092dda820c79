package tags

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/circle/internal/observability"
	"github.com/hrygo/circle/store"
)

// LLMClassifier classifies tags with an OpenAI-compatible chat model.
// Any failure or out-of-contract answer falls back to the rules classifier,
// so Classify never returns an error.
type LLMClassifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	cache   *classificationCache

	fallback *RulesClassifier
}

// LLMConfig holds configuration for the LLM classifier.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewLLMClassifier creates a new LLM-based tag classifier.
func NewLLMClassifier(cfg LLMConfig) *LLMClassifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.deepseek.com"
	}
	model := cfg.Model
	if model == "" {
		model = "deepseek-chat"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL

	return &LLMClassifier{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		timeout:  timeout,
		cache:    newClassificationCache(1000, 30*time.Minute),
		fallback: NewRulesClassifier(),
	}
}

// Name returns the classifier name.
func (c *LLMClassifier) Name() string {
	return "llm"
}

// Classify returns the model's classification, or the rules classification
// when the model is unavailable or answers outside the contract.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	key := strings.TrimSpace(text)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	result, reason, err := c.classifyWithModel(ctx, key)
	if err != nil {
		slog.Warn("LLM tag classification failed, using rules",
			"error", err,
			"reason", reason,
			"text", truncateForLog(key, 50))
		observability.RecordClassifierFallback(reason)
		return c.fallback.classify(key), nil
	}

	observability.RecordClassification(c.Name())
	c.cache.Set(key, result)
	return result, nil
}

func (c *LLMClassifier) classifyWithModel(ctx context.Context, text string) (*Classification, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   50,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("标签: %s", text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		reason := "request"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		return nil, reason, errors.Wrap(err, "LLM request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, "empty", errors.New("empty response from LLM")
	}

	result, err := parseClassification(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, "parse", err
	}

	slog.Debug("LLM tag classification completed",
		"text", truncateForLog(text, 30),
		"category", result.Category,
		"confidence", result.Confidence,
		"latency_ms", time.Since(start).Milliseconds())
	return result, "", nil
}

var codeBlockPattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// parseClassification parses the model's JSON answer. Categories other than
// skill and need are rejected; confidence is clamped to [0, 1].
func parseClassification(content string) (*Classification, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if matches := codeBlockPattern.FindStringSubmatch(content); len(matches) > 1 {
			content = matches[1]
		}
	}

	var raw struct {
		Category   string   `json:"category"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errors.Wrap(err, "JSON unmarshal failed")
	}

	category := store.TagCategory(strings.ToLower(strings.TrimSpace(raw.Category)))
	if category != store.TagCategorySkill && category != store.TagCategoryNeed {
		return nil, errors.Errorf("unexpected category %q", raw.Category)
	}
	if raw.Confidence == nil {
		return nil, errors.New("missing confidence")
	}

	return &Classification{
		Category:   category,
		Confidence: clampConfidence(*raw.Confidence),
		Source:     "llm",
	}, nil
}

// truncateForLog truncates a string for logging purposes.
func truncateForLog(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

const classifySystemPrompt = `社区标签分类器。判断标签描述的是成员能提供的技能，还是成员想获得的需求。

skill: 能力、职业、可以教给别人的东西 (如 前端开发、产品设计、内容运营)
need: 想学习、想获得、想解决的问题 (如 找投资、学英语、职业规划)

只返回 JSON: {"category": "skill" | "need", "confidence": 0到1之间的数字}`
