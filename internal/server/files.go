package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/mohammad-safakhou/documind/internal/answer"
	"github.com/mohammad-safakhou/documind/internal/documents"
	"github.com/mohammad-safakhou/documind/internal/extract"
	"github.com/mohammad-safakhou/documind/internal/runtime"
)

const uploadDetail = "File uploaded and processed."

type FilesHandler struct {
	Extractor *extract.Service
	Documents documents.Repository
	TempDir   string
	MaxSize   string
	Logger    *log.Logger
}

func (h *FilesHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	if h.MaxSize != "" {
		g.POST("/upload", h.upload, middleware.BodyLimit(h.MaxSize))
		return
	}
	g.POST("/upload", h.upload)
}

// Upload
//
//	@Summary		Upload a file
//	@Description	Extracts text from a PDF or transcribes audio/video; the result becomes the chat context
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"PDF, audio or video file"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	HTTPError
//	@Failure		413		{object}	HTTPError
//	@Failure		500		{object}	HTTPError
//	@Router			/api/files/upload [post]
func (h *FilesHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	name := filepath.Base(fh.Filename)
	ctx := c.Request().Context()

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	tmpPath, err := h.spool(src, filepath.Ext(name))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer os.Remove(tmpPath)

	res, err := h.Extractor.Process(ctx, name, tmpPath)
	if err != nil {
		h.Logger.Printf("process %s: %v", name, err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	uploader, _ := runtime.SubjectFromContext(ctx)
	doc, err := h.Documents.Save(ctx, answer.Document{
		Filename:   name,
		Kind:       res.Kind,
		Text:       res.Text,
		Segments:   res.Segments,
		UploadedBy: uploader,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	recordUpload(ctx, res.Kind)
	h.Logger.Printf("stored %s (%s) as %s for %s", name, res.Kind, doc.ID, uploader)

	return c.JSON(http.StatusOK, UploadResponse{
		ID:            doc.ID,
		Filename:      name,
		Kind:          string(res.Kind),
		Detail:        uploadDetail,
		Summary:       res.Summary,
		Transcription: res.Text,
	})
}

// spool copies the upload to a temp file; extractors and the transcription
// client work on paths.
func (h *FilesHandler) spool(src io.Reader, ext string) (string, error) {
	tmp, err := os.CreateTemp(h.TempDir, "documind-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

var (
	uploadMetricsOnce sync.Once
	uploadsTotal      otelmetric.Int64Counter
)

func recordUpload(ctx context.Context, kind answer.Kind) {
	uploadMetricsOnce.Do(func() {
		uploadsTotal, _ = otel.Meter("documind/server").Int64Counter("documind_uploads_total",
			otelmetric.WithDescription("Processed uploads by document kind"))
	})
	if uploadsTotal != nil {
		uploadsTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("kind", string(kind))))
	}
}
