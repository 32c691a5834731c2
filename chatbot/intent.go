package chatbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrIntentParse marks a classifier response that could not be decoded as
// structured intent even after brace extraction. Callers recover from it
// by falling back to a general intent carrying the original question.
var ErrIntentParse = errors.New("chatbot: intent response is not valid JSON")

// The upstream model enforces a request rate; calls are spaced out by at
// least this much.
const classifyMinInterval = 2500 * time.Millisecond

// TextGenerator is the language-generation capability the classifier
// depends on.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier turns a free-text question into a structured Intent.
type Classifier struct {
	generator   TextGenerator
	cache       *intentCache
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewClassifier builds a Classifier over the given generator. The cache
// may be nil, which disables result caching.
func NewClassifier(generator TextGenerator, cache *intentCache) *Classifier {
	return &Classifier{
		generator:   generator,
		cache:       cache,
		minInterval: classifyMinInterval,
	}
}

// Classify analyzes the question and never fails the request: on any
// upstream or parse failure it returns the fallback general intent
// carrying the original question verbatim, together with the cause so
// the caller can log the degradation.
func (c *Classifier) Classify(ctx context.Context, question string) (Intent, error) {
	fallback := Intent{
		QueryType:          QueryTypeGeneral,
		Query:              question,
		Keywords:           []string{},
		RequiredOperations: []string{},
	}

	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return fallback, nil
	}
	fallback.Query = trimmed

	if cached, ok := c.cache.get(ctx, trimmed); ok {
		return cached, nil
	}

	c.pace()

	raw, err := c.generator.Complete(ctx, fmt.Sprintf(intentPromptTemplate, trimmed))
	if err != nil {
		return fallback, fmt.Errorf("chatbot: classify question: %w", err)
	}

	intent, err := parseIntent(raw)
	if err != nil {
		return fallback, err
	}
	if intent.Query == "" {
		intent.Query = trimmed
	}

	c.cache.store(ctx, trimmed, intent)
	return intent, nil
}

// pace enforces the minimum interval between upstream calls. Concurrent
// callers queue on the mutex so the spacing holds across goroutines.
func (c *Classifier) pace() {
	if c.minInterval <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.lastCall.IsZero() {
		if wait := c.minInterval - time.Since(c.lastCall); wait > 0 {
			time.Sleep(wait)
		}
	}
	c.lastCall = time.Now()
}

type intentEnvelope struct {
	QueryType string `json:"query_type"`
	Args      struct {
		Query              string   `json:"query"`
		Company            string   `json:"company"`
		Keywords           []string `json:"keywords"`
		RequiredOperations []string `json:"required_operations"`
	} `json:"args"`
}

func decodeIntentEnvelope(raw string) (intentEnvelope, bool) {
	var envelope intentEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return intentEnvelope{}, false
	}
	return envelope, true
}

func parseIntent(raw string) (Intent, error) {
	cleaned := stripCodeFence(raw)

	envelope, ok := decodeIntentEnvelope(cleaned)
	if !ok {
		// Recovery pass: the model sometimes wraps the JSON in prose.
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end == -1 || end <= start {
			return Intent{}, ErrIntentParse
		}
		envelope, ok = decodeIntentEnvelope(cleaned[start : end+1])
		if !ok {
			return Intent{}, ErrIntentParse
		}
	}

	intent := Intent{
		QueryType:          strings.TrimSpace(envelope.QueryType),
		Company:            strings.TrimSpace(envelope.Args.Company),
		Query:              strings.TrimSpace(envelope.Args.Query),
		Keywords:           envelope.Args.Keywords,
		RequiredOperations: envelope.Args.RequiredOperations,
	}
	if intent.QueryType == "" {
		intent.QueryType = QueryTypeGeneral
	}
	if intent.Keywords == nil {
		intent.Keywords = []string{}
	}
	if intent.RequiredOperations == nil {
		intent.RequiredOperations = []string{}
	}
	return intent, nil
}

// stripCodeFence removes a leading/trailing markdown code fence the model
// tends to wrap its JSON in.
func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	if strings.HasSuffix(cleaned, "```") {
		cleaned = cleaned[:len(cleaned)-len("```")]
	}
	return strings.TrimSpace(cleaned)
}
