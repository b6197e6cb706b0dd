package llm

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mohammad-safakhou/documind/config"
	"github.com/mohammad-safakhou/documind/internal/answer"
)

const (
	// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

// ChatCompleter answers prompts through an OpenAI-compatible chat API.
type ChatCompleter struct {
	client *openai.Client
	model  string
}

// NewChatCompleter creates a ChatCompleter. Empty baseURL and model fall back
// to the Groq defaults.
func NewChatCompleter(apiKey, baseURL, model string, timeout time.Duration) *ChatCompleter {
	if model == "" {
		model = DefaultModel
	}
	return &ChatCompleter{
		client: openai.NewClientWithConfig(clientConfig(apiKey, baseURL, timeout)),
		model:  model,
	}
}

func clientConfig(apiKey, baseURL string, timeout time.Duration) openai.ClientConfig {
	oc := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	oc.HTTPClient = hc
	return oc
}

// Complete sends the system instruction and a context/question user message.
func (c *ChatCompleter) Complete(ctx context.Context, p answer.Prompt) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: UserMessage(p.Context, p.Question)},
		},
		Temperature: temperature(p.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", answer.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// UserMessage formats the document excerpt and the question for the model.
func UserMessage(excerpt, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s\nAnswer:", excerpt, question)
}

// go-openai omits a zero temperature from the request, which servers read as
// their default (1.0). The smallest positive float32 keeps sampling greedy.
func temperature(t float32) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// NewCompleter returns the completer described by cfg, or answer.Disabled
// when no API key is configured.
func NewCompleter(cfg config.LLMConfig, logger *log.Logger) answer.Completer {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	if !cfg.Enabled() {
		logger.Printf("no api key configured; answers come from document matching only")
		return answer.Disabled{}
	}
	logger.Printf("using model %s", firstNonEmpty(cfg.Model, DefaultModel))
	return NewChatCompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
