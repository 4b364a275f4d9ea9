package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/meridianfs/opsportal/internal/resolve"
	"github.com/meridianfs/opsportal/internal/retrieval"
)

// ContextBuilder is what the handler needs from the retrieval orchestrator.
type ContextBuilder interface {
	ExtractTextForClient(ctx context.Context, query string, refs []resolve.AttachmentRef, clientKind string) retrieval.KnowledgeBase
}

// AssistantHandler serves the context-resolution endpoint the assistant
// prompt builder calls.
type AssistantHandler struct {
	Contexts ContextBuilder
	Timeout  time.Duration
	Logger   *log.Logger
}

func (h *AssistantHandler) Register(g *echo.Group) {
	g.POST("/context", h.buildContext)
}

type contextRequest struct {
	Query       string                  `json:"query"`
	Attachments []resolve.AttachmentRef `json:"attachments"`
	Client      string                  `json:"client"`
}

type contextResponse struct {
	CombinedText string   `json:"combined_text"`
	Citations    []string `json:"citations"`
}

// buildContext runs the pipeline under a per-request deadline. Partial
// failure is not an HTTP error: an empty knowledge base comes back 200 and
// the prompt builder decides what to tell the user.
func (h *AssistantHandler) buildContext(c echo.Context) error {
	var req contextRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	ctx := c.Request().Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	reqID := uuid.NewString()
	started := time.Now()
	kb := h.Contexts.ExtractTextForClient(ctx, req.Query, req.Attachments, req.Client)
	h.Logger.Printf("%s client=%s attachments=%d citations=%d chars=%d took=%s",
		reqID, req.Client, len(req.Attachments), len(kb.Citations), len(kb.CombinedText), time.Since(started))

	resp := contextResponse{CombinedText: kb.CombinedText, Citations: kb.Citations}
	if resp.Citations == nil {
		resp.Citations = []string{}
	}
	return c.JSON(http.StatusOK, resp)
}
