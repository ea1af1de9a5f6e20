// Package ai generates example sentences for words that have none.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/quiz"
	"github.com/example/vocabplan/pkg/models"
)

// ErrNoExample is returned when the model produced nothing usable
var ErrNoExample = errors.New("ai: no usable example sentence")

// ExampleStore persists generated sentences
type ExampleStore interface {
	SetExample(ctx context.Context, wordID int64, example string) error
}

// Config configures the ChatGPT client
type Config struct {
	APIKey  string
	BaseURL string // empty means the public OpenAI endpoint
	Model   string
}

// failureBackoff is how long a word whose generation failed is left alone
const failureBackoff = time.Hour

// ChatGPT is a client for the OpenAI chat completion API
type ChatGPT struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	store       ExampleStore
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	cache  map[int64]string
	failed map[int64]time.Time
}

// New creates a ChatGPT client. store may be nil.
func New(cfg Config, store ExampleStore, logger *zap.Logger) (*ChatGPT, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: OpenAI API key is not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &ChatGPT{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   100,
		temperature: 0.7,
		store:       store,
		logger:      logger,
		now:         time.Now,
		cache:       make(map[int64]string),
		failed:      make(map[int64]time.Time),
	}, nil
}

// GenerateExample asks the model for a short sentence that uses the word
func (c *ChatGPT) GenerateExample(ctx context.Context, word models.Word) (string, error) {
	prompt := fmt.Sprintf(
		"Write one short, simple English sentence for a middle school student that uses the word '%s' (meaning: %s). Return only the sentence.",
		word.EnglishWord, word.Translation,
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You write example sentences for English vocabulary practice."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("ai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoExample
	}

	sentence := strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), "\"")
	if sentence == "" {
		return "", ErrNoExample
	}
	return sentence, nil
}

// ExampleSentence returns the stored example or generates, checks and saves
// a new one. A sentence that does not contain the word is rejected. After a
// failed generation the word returns ErrNoExample for an hour without calling
// the API again.
func (c *ChatGPT) ExampleSentence(ctx context.Context, word models.Word) (string, error) {
	if word.Example != "" {
		return word.Example, nil
	}

	c.mu.Lock()
	cached, ok := c.cache[word.ID]
	failedAt, failed := c.failed[word.ID]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	if failed && c.now().Sub(failedAt) < failureBackoff {
		return "", ErrNoExample
	}

	sentence, err := c.GenerateExample(ctx, word)
	if err != nil {
		if ctx.Err() == nil {
			c.markFailed(word.ID)
		}
		return "", err
	}
	if _, ok := quiz.ReplaceWordWithBlank(sentence, word.EnglishWord); !ok {
		c.logger.Warn("generated example does not use the word",
			zap.Int64("word_id", word.ID),
			zap.String("sentence", sentence),
		)
		c.markFailed(word.ID)
		return "", ErrNoExample
	}

	c.mu.Lock()
	c.cache[word.ID] = sentence
	delete(c.failed, word.ID)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SetExample(ctx, word.ID, sentence); err != nil {
			c.logger.Error("failed to save generated example", zap.Int64("word_id", word.ID), zap.Error(err))
		}
	}
	return sentence, nil
}

func (c *ChatGPT) markFailed(wordID int64) {
	c.mu.Lock()
	c.failed[wordID] = c.now()
	c.mu.Unlock()
}
