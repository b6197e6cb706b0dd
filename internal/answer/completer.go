package answer

import (
	"context"
	"errors"
	"fmt"
)

// SystemInstruction is the only instruction sent to the language model.
const SystemInstruction = "You are a helpful assistant. Use the following context to answer the question briefly."

// Prompt is one completion request.
type Prompt struct {
	System      string
	Context     string
	Question    string
	Temperature float32
}

// Completer produces a model answer for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

var (
	// ErrCompleterDisabled is returned when no model credential is configured.
	ErrCompleterDisabled = errors.New("llm completer disabled")
	// ErrEmptyCompletion is returned when the model answered with no content.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
)

// Disabled is the Completer used when no credential is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Prompt) (string, error) {
	return "", ErrCompleterDisabled
}

// LLMReason classifies why a completion attempt produced nothing.
type LLMReason string

const (
	LLMReasonDisabled  LLMReason = "disabled"
	LLMReasonTimeout   LLMReason = "timeout"
	LLMReasonCanceled  LLMReason = "canceled"
	LLMReasonEmpty     LLMReason = "empty"
	LLMReasonTransport LLMReason = "transport"
)

// LLMError wraps a failed completion attempt.
type LLMError struct {
	Reason LLMReason
	Err    error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Reason, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

func classifyLLMError(err error) *LLMError {
	switch {
	case errors.Is(err, ErrCompleterDisabled):
		return &LLMError{Reason: LLMReasonDisabled, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &LLMError{Reason: LLMReasonTimeout, Err: err}
	case errors.Is(err, context.Canceled):
		return &LLMError{Reason: LLMReasonCanceled, Err: err}
	case errors.Is(err, ErrEmptyCompletion):
		return &LLMError{Reason: LLMReasonEmpty, Err: err}
	default:
		return &LLMError{Reason: LLMReasonTransport, Err: err}
	}
}
