package box

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/meridianfs/opsportal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.BoxConfig{
		BaseURL:      srv.URL,
		Token:        "test-token",
		RootFolderID: "100",
		PageSize:     200,
		Timeout:      5 * time.Second,
	}
	return New(cfg, log.New(os.Stderr, "[BOX] ", log.LstdFlags)), srv
}

func TestListFolderItems(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/folders/42/items" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"total_count":2,"entries":[
			{"type":"file","id":"1","name":"BS_2024.pdf","size":1024,"sha1":"abc","modified_at":"2024-04-01T10:00:00-07:00"},
			{"type":"folder","id":"2","name":"Archive"}
		]}`)
	}))

	items := c.ListFolderItems(context.Background(), "42")
	if gotAuth != "Bearer test-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Type != KindFile || items[0].Name != "BS_2024.pdf" || items[0].SHA1 != "abc" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[0].ModifiedAt.IsZero() {
		t.Fatal("modified_at not parsed")
	}
	if items[1].Type != KindFolder {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
}

func TestListFolderItemsProviderErrorDegradesToEmpty(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	if items := c.ListFolderItems(context.Background(), "42"); items != nil {
		t.Fatalf("expected nil on provider error, got %v", items)
	}
}

func TestFileInfoNotFoundReturnsNil(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	if info := c.FileInfo(context.Background(), "9"); info != nil {
		t.Fatalf("expected nil, got %+v", info)
	}
}

func TestIsUnderRoot(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/files/7":
			io.WriteString(w, `{"type":"file","id":"7","name":"a.txt","path_collection":{"total_count":2,"entries":[{"type":"folder","id":"0","name":"All Files"},{"type":"folder","id":"100","name":"Ops"}]}}`)
		case "/files/8":
			io.WriteString(w, `{"type":"file","id":"8","name":"b.txt","path_collection":{"total_count":1,"entries":[{"type":"folder","id":"0","name":"All Files"}]}}`)
		case "/folders/55":
			io.WriteString(w, `{"type":"folder","id":"55","name":"Q2","path_collection":{"total_count":2,"entries":[{"type":"folder","id":"0","name":"All Files"},{"type":"folder","id":"100","name":"Ops"}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	if !c.IsUnderRoot(ctx, "100", KindFolder) {
		t.Fatal("root folder itself must pass")
	}
	if !c.IsUnderRoot(ctx, "7", KindFile) {
		t.Fatal("file with root in ancestry must pass")
	}
	if c.IsUnderRoot(ctx, "8", KindFile) {
		t.Fatal("file outside the root subtree must fail")
	}
	if !c.IsUnderRoot(ctx, "55", KindFolder) {
		t.Fatal("folder with root in ancestry must pass")
	}
	if c.IsUnderRoot(ctx, "404", KindFile) {
		t.Fatal("not-found entity must fail closed")
	}
}

func TestOpenReadStream(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/7/content" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "hello stream")
	}))
	rc := c.OpenReadStream(context.Background(), "7")
	if rc == nil {
		t.Fatal("expected stream")
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil || string(b) != "hello stream" {
		t.Fatalf("read = %q, %v", b, err)
	}

	if rc := c.OpenReadStream(context.Background(), "missing"); rc != nil {
		rc.Close()
		t.Fatal("expected nil stream on provider error")
	}
}

func TestUnconfiguredClientReturnsEmpty(t *testing.T) {
	t.Parallel()
	c := New(config.BoxConfig{RootFolderID: "100", PageSize: 10}, log.New(io.Discard, "", 0))
	ctx := context.Background()
	if items := c.ListFolderItems(ctx, "1"); items != nil {
		t.Fatal("expected nil items")
	}
	if info := c.FileInfo(ctx, "1"); info != nil {
		t.Fatal("expected nil info")
	}
	if c.IsUnderRoot(ctx, "1", KindFile) {
		t.Fatal("unconfigured client must fail closed")
	}
}
