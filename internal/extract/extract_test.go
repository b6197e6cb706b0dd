package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/documind/internal/answer"
)

type fakeTranscriber struct {
	tr   Transcript
	err  error
	path string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (Transcript, error) {
	f.path = path
	return f.tr, f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(context.Context, string) (string, error) { return f.text, f.err }

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func TestKindFromFilename(t *testing.T) {
	cases := map[string]answer.Kind{
		"talk.MP3":       answer.KindAudio,
		"memo.wav":       answer.KindAudio,
		"voice.m4a":      answer.KindAudio,
		"clip.mp4":       answer.KindVideo,
		"screen.webm":    answer.KindVideo,
		"report.PDF":     answer.KindPDF,
		"notes.txt":      answer.KindUnknown,
		"no-extension":   answer.KindUnknown,
		"archive.pdf.gz": answer.KindUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, KindFromFilename(name), name)
	}
}

func TestProcessAudio(t *testing.T) {
	ft := &fakeTranscriber{tr: Transcript{
		Text:     "  The cat sat on the mat.  ",
		Segments: []answer.Segment{{Start: 65, End: 70, Text: "The cat sat on the mat."}},
	}}
	svc := NewService(ft, fakeExtractor{}, quiet())

	res, err := svc.Process(context.Background(), "talk.mp3", "/tmp/upload-1")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/upload-1", ft.path)
	assert.Equal(t, answer.KindAudio, res.Kind)
	assert.Equal(t, "The cat sat on the mat.", res.Text)
	assert.Len(t, res.Segments, 1)
	assert.Equal(t, "Transcription Preview: The cat sat on the mat....", res.Summary)
}

func TestProcessAudioPreviewIsTruncated(t *testing.T) {
	long := strings.Repeat("ü", 500)
	svc := NewService(&fakeTranscriber{tr: Transcript{Text: long}}, nil, quiet())

	res, err := svc.Process(context.Background(), "clip.mp4", "p")
	require.NoError(t, err)
	assert.Equal(t, answer.KindVideo, res.Kind)
	assert.Equal(t, "Transcription Preview: "+strings.Repeat("ü", 200)+"...", res.Summary)
	assert.Equal(t, long, res.Text)
}

func TestProcessAudioWithoutSpeech(t *testing.T) {
	svc := NewService(&fakeTranscriber{tr: Transcript{Text: "   "}}, nil, quiet())
	res, err := svc.Process(context.Background(), "silence.wav", "p")
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, SummaryNoSpeech, res.Summary)
}

func TestProcessAudioWithoutTranscriber(t *testing.T) {
	svc := NewService(nil, nil, quiet())
	res, err := svc.Process(context.Background(), "talk.mp3", "p")
	require.NoError(t, err)
	assert.Equal(t, answer.KindAudio, res.Kind)
	assert.Empty(t, res.Text)
	assert.Equal(t, SummaryNoTranscriber, res.Summary)

	svc = NewService(&fakeTranscriber{err: ErrTranscriberUnavailable}, nil, quiet())
	res, err = svc.Process(context.Background(), "talk.mp3", "p")
	require.NoError(t, err)
	assert.Equal(t, SummaryNoTranscriber, res.Summary)
}

func TestProcessAudioFailure(t *testing.T) {
	svc := NewService(&fakeTranscriber{err: errors.New("503 service unavailable")}, nil, quiet())
	_, err := svc.Process(context.Background(), "talk.mp3", "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestProcessPDF(t *testing.T) {
	svc := NewService(nil, fakeExtractor{text: "Page one.\nPage two.\n"}, quiet())
	res, err := svc.Process(context.Background(), "doc.pdf", "p")
	require.NoError(t, err)
	assert.Equal(t, answer.KindPDF, res.Kind)
	assert.Equal(t, "Page one.\nPage two.\n", res.Text)
	assert.Equal(t, "PDF Content Preview: Page one.\nPage two.\n...", res.Summary)
	assert.Empty(t, res.Segments)
}

func TestProcessPDFFailure(t *testing.T) {
	svc := NewService(nil, fakeExtractor{err: errors.New("bad xref")}, quiet())
	_, err := svc.Process(context.Background(), "doc.pdf", "p")
	assert.Error(t, err)
}

func TestProcessUnsupported(t *testing.T) {
	svc := NewService(&fakeTranscriber{}, fakeExtractor{text: "unused"}, quiet())
	res, err := svc.Process(context.Background(), "notes.txt", "p")
	require.NoError(t, err)
	assert.Equal(t, answer.KindUnknown, res.Kind)
	assert.Empty(t, res.Text)
	assert.Equal(t, SummaryUnsupported, res.Summary)
}

func TestPDFExtractorRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o600))

	_, err := PDFExtractor{}.ExtractText(context.Background(), path)
	assert.Error(t, err)
}

func TestPDFExtractorMissingFile(t *testing.T) {
	_, err := PDFExtractor{}.ExtractText(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

// writePDF builds an uncompressed PDF with one Helvetica text line per page.
// An empty entry produces a page with an empty content stream.
func writePDF(t *testing.T, pages ...string) string {
	t.Helper()
	var (
		buf     bytes.Buffer
		offsets []int
	)
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestPDFExtractorJoinsPages(t *testing.T) {
	path := writePDF(t, "page one", "", "page two")

	text, err := PDFExtractor{}.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "page one\npage two\n", text)
}

func TestProcessRealPDF(t *testing.T) {
	path := writePDF(t, "The cat sat on the mat.")

	res, err := NewService(nil, nil, quiet()).Process(context.Background(), "notes.pdf", path)
	require.NoError(t, err)
	assert.Equal(t, answer.KindPDF, res.Kind)
	assert.Equal(t, "The cat sat on the mat.\n", res.Text)
	assert.Equal(t, "PDF Content Preview: The cat sat on the mat.\n...", res.Summary)
}
