// Package extract turns uploaded files into document text: transcripts for
// audio and video, page text for PDFs.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/mohammad-safakhou/documind/internal/answer"
)

const (
	transcriptPreviewRunes = 200
	pdfPreviewRunes        = 300

	SummaryNoSpeech        = "Processed successfully, but no speech was detected."
	SummaryNoTranscriber   = "Transcription service not configured. Transcription failed."
	SummaryUnsupported     = "Unsupported file type for auto-processing."
	transcriptPreviewLabel = "Transcription Preview: "
	pdfPreviewLabel        = "PDF Content Preview: "
)

// ErrTranscriberUnavailable is returned by transcribers that cannot run.
var ErrTranscriberUnavailable = errors.New("transcriber not configured")

// Transcript is the speech-to-text output for one media file.
type Transcript struct {
	Text     string
	Segments []answer.Segment
}

// Transcriber converts the media file at path into a timed transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcript, error)
}

// TextExtractor reads the plain text of a document file.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Result is what an upload contributes to the answer engine.
type Result struct {
	Kind     answer.Kind
	Text     string
	Segments []answer.Segment
	Summary  string
}

// KindFromFilename classifies an upload by its extension.
func KindFromFilename(name string) answer.Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".wav", ".m4a", ".mpga", ".mpeg", ".ogg", ".flac":
		return answer.KindAudio
	case ".mp4", ".webm", ".mov":
		return answer.KindVideo
	case ".pdf":
		return answer.KindPDF
	default:
		return answer.KindUnknown
	}
}

// Service dispatches uploads to the extractor for their kind.
type Service struct {
	transcriber Transcriber
	pdf         TextExtractor
	logger      *log.Logger
}

// NewService wires the extractors. A nil transcriber leaves audio and video
// uploads untranscribed; a nil pdf extractor defaults to PDFExtractor.
func NewService(transcriber Transcriber, pdf TextExtractor, logger *log.Logger) *Service {
	if pdf == nil {
		pdf = PDFExtractor{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[UPLOAD] ", log.LstdFlags)
	}
	return &Service{transcriber: transcriber, pdf: pdf, logger: logger}
}

// Process extracts the content of the file stored at path. filename is the
// client-supplied name and only decides the kind.
func (s *Service) Process(ctx context.Context, filename, path string) (Result, error) {
	kind := KindFromFilename(filename)
	res := Result{Kind: kind}

	switch kind {
	case answer.KindAudio, answer.KindVideo:
		if s.transcriber == nil {
			res.Summary = SummaryNoTranscriber
			return res, nil
		}
		s.logger.Printf("transcribing %s", filename)
		tr, err := s.transcriber.Transcribe(ctx, path)
		if errors.Is(err, ErrTranscriberUnavailable) {
			res.Summary = SummaryNoTranscriber
			return res, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("transcribe %s: %w", filename, err)
		}
		res.Text = strings.TrimSpace(tr.Text)
		res.Segments = tr.Segments
		if res.Text == "" {
			res.Summary = SummaryNoSpeech
		} else {
			res.Summary = transcriptPreviewLabel + answer.TruncateRunes(res.Text, transcriptPreviewRunes) + "..."
		}
		s.logger.Printf("transcribed %s: %d chars, %d segments", filename, len(res.Text), len(res.Segments))
	case answer.KindPDF:
		text, err := s.pdf.ExtractText(ctx, path)
		if err != nil {
			return Result{}, fmt.Errorf("read pdf %s: %w", filename, err)
		}
		res.Text = text
		res.Summary = pdfPreviewLabel + answer.TruncateRunes(text, pdfPreviewRunes) + "..."
	default:
		res.Summary = SummaryUnsupported
	}
	return res, nil
}
