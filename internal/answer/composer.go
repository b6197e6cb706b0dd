package answer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// NoContextMessage is returned when nothing has been uploaded yet.
	NoContextMessage = "I don't have any file context yet. Please upload a PDF, Audio, or Video file first."
	// NoMatchMessage is returned when neither the model nor the keyword match produced an answer.
	NoMatchMessage = "I couldn't find a specific answer in the uploaded file, but I've processed its content. Try asking about specific keywords found in the document."
	// FilePrefix starts answers built from the best-matching sentence.
	FilePrefix = "Based on the file: "

	// MaxContextRunes caps the document text sent to the model.
	MaxContextRunes = 25000
	// DefaultLLMTimeout bounds a single completion attempt.
	DefaultLLMTimeout = 20 * time.Second
)

// Source tells where an answer body came from.
type Source string

const (
	SourceNoContext Source = "no_context"
	SourceLLM       Source = "llm"
	SourceFile      Source = "file"
	SourceNone      Source = "none"
)

// Answer is the composed reply to one question.
type Answer struct {
	Body      string
	Timestamp string // MM:SS of the matching transcript segment, if any
	Source    Source
}

// String renders the answer as returned to clients.
func (a Answer) String() string {
	if a.Timestamp == "" {
		return a.Body
	}
	return a.Body + " [" + a.Timestamp + "]"
}

// Composer answers questions against a document, preferring the model and
// falling back to keyword matching.
type Composer struct {
	completer  Completer
	logger     *log.Logger
	maxContext int
	timeout    time.Duration
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the operator log for model failures.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds each completion attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxContext caps the number of document runes sent to the model.
func WithMaxContext(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxContext = n
		}
	}
}

// NewComposer builds a Composer. A nil completer behaves like Disabled.
func NewComposer(completer Completer, opts ...Option) *Composer {
	if completer == nil {
		completer = Disabled{}
	}
	c := &Composer{
		completer:  completer,
		logger:     log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
		maxContext: MaxContextRunes,
		timeout:    DefaultLLMTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type llmOutcome struct {
	text string
	err  *LLMError
}

// Answer never fails: every combination of document, question and model
// behaviour yields a well-formed Answer.
func (c *Composer) Answer(ctx context.Context, doc *Document, question string) Answer {
	if !doc.HasContext() {
		recordAnswer(ctx, SourceNoContext)
		return Answer{Body: NoContextMessage, Source: SourceNoContext}
	}

	outcome := c.attemptLLM(ctx, doc, question)

	// The keyword match always runs: it picks the sentence used for the
	// timestamp even when the model answered.
	best, found := Rank(question, Sentences(doc.Text)).Best()
	bestText := strings.TrimSpace(best.Text)

	var ans Answer
	switch {
	case outcome.err == nil:
		ans = Answer{Body: outcome.text, Source: SourceLLM}
	case found:
		ans = Answer{Body: FilePrefix + `"` + bestText + `"`, Source: SourceFile}
	default:
		ans = Answer{Body: NoMatchMessage, Source: SourceNone}
	}

	if found && doc.Timed() {
		if ts, ok := Locate(bestText, doc.Segments); ok {
			ans.Timestamp = ts
		}
	}
	recordAnswer(ctx, ans.Source)
	return ans
}

func (c *Composer) attemptLLM(ctx context.Context, doc *Document, question string) (out llmOutcome) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx, span := otel.Tracer("documind/answer").Start(ctx, "answer.llm")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			out = c.fail(ctx, span, fmt.Errorf("completer panic: %v", r))
		}
	}()

	started := time.Now()
	text, err := c.completer.Complete(ctx, Prompt{
		System:      SystemInstruction,
		Context:     TruncateRunes(doc.Text, c.maxContext),
		Question:    question,
		Temperature: 0,
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		return c.fail(ctx, span, err)
	}
	recordLLMLatency(ctx, time.Since(started))
	return llmOutcome{text: text}
}

func (c *Composer) fail(ctx context.Context, span trace.Span, err error) llmOutcome {
	lerr := classifyLLMError(err)
	span.SetAttributes(attribute.String("llm.reason", string(lerr.Reason)))
	recordLLMFailure(ctx, lerr.Reason)
	if lerr.Reason != LLMReasonDisabled {
		span.RecordError(lerr)
		span.SetStatus(codes.Error, string(lerr.Reason))
		c.logger.Printf("llm unavailable, answering from document match: %v", lerr)
	}
	return llmOutcome{err: lerr}
}
