package server

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/documind/internal/answer"
	"github.com/mohammad-safakhou/documind/internal/documents"
	"github.com/mohammad-safakhou/documind/internal/runtime"
)

type ChatHandler struct {
	Documents documents.Repository
	Composer  *answer.Composer
	Logger    *log.Logger
}

func (h *ChatHandler) Register(g *echo.Group, secret []byte, limiter runtime.Limiter) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.chat, runtime.RateLimit(limiter, nil))
}

// Chat
//
//	@Summary		Ask about the latest upload
//	@Description	Answers from the model when available, else from the best matching sentence
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ChatRequest	true	"Question"
//	@Success		200		{object}	ChatResponse
//	@Failure		401		{object}	HTTPError
//	@Failure		429		{object}	HTTPError
//	@Router			/api/chat [post]
func (h *ChatHandler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	doc, err := h.Documents.Latest(ctx)
	if err != nil {
		// a lookup failure reads as "nothing uploaded" rather than a 5xx
		h.Logger.Printf("latest document: %v", err)
		doc = nil
	}
	ans := h.Composer.Answer(ctx, doc, req.Question)
	return c.JSON(http.StatusOK, ChatResponse{Answer: ans.String()})
}
