package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/meridianfs/opsportal/internal/resolve"
	"github.com/meridianfs/opsportal/internal/retrieval"
)

type stubContexts struct {
	kb     retrieval.KnowledgeBase
	gotReq struct {
		query  string
		refs   []resolve.AttachmentRef
		client string
	}
}

func (s *stubContexts) ExtractTextForClient(_ context.Context, query string, refs []resolve.AttachmentRef, clientKind string) retrieval.KnowledgeBase {
	s.gotReq.query = query
	s.gotReq.refs = refs
	s.gotReq.client = clientKind
	return s.kb
}

func newHandler(kb retrieval.KnowledgeBase) (*AssistantHandler, *stubContexts) {
	stub := &stubContexts{kb: kb}
	return &AssistantHandler{
		Contexts: stub,
		Timeout:  5 * time.Second,
		Logger:   log.New(io.Discard, "", 0),
	}, stub
}

func doRequest(t *testing.T, h *AssistantHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/assistant/context", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.buildContext(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestBuildContext(t *testing.T) {
	t.Parallel()
	h, stub := newHandler(retrieval.KnowledgeBase{
		CombinedText: "### Source: a.txt\nbody",
		Citations:    []string{"a.txt"},
	})
	rec := doRequest(t, h, `{"query":"balance sheet","attachments":[{"type":"box_file","id":"f1"}],"client":"assistant"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if stub.gotReq.client != "assistant" || len(stub.gotReq.refs) != 1 {
		t.Fatalf("orchestrator got %+v", stub.gotReq)
	}

	var resp struct {
		CombinedText string   `json:"combined_text"`
		Citations    []string `json:"citations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CombinedText == "" || len(resp.Citations) != 1 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestBuildContextEmptyKnowledgeBaseIs200(t *testing.T) {
	t.Parallel()
	h, _ := newHandler(retrieval.KnowledgeBase{})
	rec := doRequest(t, h, `{"query":"anything","client":"widget"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("empty knowledge base must not be an HTTP error, status = %d", rec.Code)
	}
	var resp struct {
		Citations []string `json:"citations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Citations == nil {
		t.Fatal("citations must serialize as [], not null")
	}
}

func TestBuildContextRejectsBlankQuery(t *testing.T) {
	t.Parallel()
	h, _ := newHandler(retrieval.KnowledgeBase{})
	rec := doRequest(t, h, `{"query":"  ","client":"widget"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
