package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mohammad-safakhou/documind/config"
	"github.com/mohammad-safakhou/documind/internal/answer"
	"github.com/mohammad-safakhou/documind/internal/extract"
)

const DefaultTranscriptionModel = "whisper-large-v3"

// Transcriber turns audio files into timed transcripts via a Whisper-style
// transcription endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
}

func NewTranscriber(apiKey, baseURL, model string, timeout time.Duration) *Transcriber {
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &Transcriber{
		client: openai.NewClientWithConfig(clientConfig(apiKey, baseURL, timeout)),
		model:  model,
	}
}

// NewTranscriberFromConfig returns nil when transcription has no credential;
// extract.Service reports the missing transcriber in its summary.
func NewTranscriberFromConfig(cfg config.TranscriptionConfig, logger *log.Logger) extract.Transcriber {
	if logger == nil {
		logger = log.New(log.Writer(), "[LLM] ", log.LstdFlags)
	}
	if !cfg.Enabled() {
		logger.Printf("no transcription key configured; audio uploads will not be transcribed")
		return nil
	}
	return NewTranscriber(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout)
}

// Transcribe uploads the file at path and returns its text with segments.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (extract.Transcript, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return extract.Transcript{}, fmt.Errorf("transcription: %w", err)
	}
	out := extract.Transcript{Text: resp.Text}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, answer.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return out, nil
}
