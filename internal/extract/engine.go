// Package extract converts repository files into plain text under strict
// byte and char budgets, caching every successful decode across a local and
// a shared tier.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridianfs/opsportal/internal/cache"
	"github.com/meridianfs/opsportal/internal/repository/box"
	"github.com/meridianfs/opsportal/internal/telemetry"
)

// Cached text is capped independently of any client profile so one entry can
// serve every client kind; per-request budgets are applied on the way out.
const cachedTextCap = 400_000

// Gateway is the slice of the repository client the engine needs.
type Gateway interface {
	FileInfo(ctx context.Context, id string) *box.Info
	OpenReadStream(ctx context.Context, id string) io.ReadCloser
}

// Result is one extracted document. ExtractedAt is informational; freshness
// is governed entirely by the version token in the cache key.
type Result struct {
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Engine fetches bounded byte streams and dispatches them to format
// decoders. Decoder failures are absorbed per file: a bad document yields
// empty text, never an error that aborts the request.
type Engine struct {
	gw       Gateway
	cache    cache.Cache
	decoders map[string]DecodeFunc
	maxBytes int64
	logger   *log.Logger
}

func NewEngine(gw Gateway, c cache.Cache, ocr OCR, maxBytes int64, logger *log.Logger) *Engine {
	return &Engine{
		gw:       gw,
		cache:    c,
		decoders: defaultDecoders(ocr),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Register installs or replaces the decoder for an extension (without dot).
// New formats are added by registering a case, not by branching deeper.
func (e *Engine) Register(ext string, fn DecodeFunc) {
	e.decoders[strings.ToLower(ext)] = fn
}

// Text extracts a file's text, serving from cache when the file's version
// token is unchanged. Returns nil only when the file's metadata cannot be
// fetched at all.
func (e *Engine) Text(ctx context.Context, fileID string, maxChars int) *Result {
	return e.extract(ctx, fileID, maxChars, false)
}

// FreshText bypasses both cache tiers for the read, then writes the fresh
// result back. Used when a caller suspects a stale empty entry.
func (e *Engine) FreshText(ctx context.Context, fileID string, maxChars int) *Result {
	return e.extract(ctx, fileID, maxChars, true)
}

func (e *Engine) extract(ctx context.Context, fileID string, maxChars int, fresh bool) *Result {
	info := e.gw.FileInfo(ctx, fileID)
	if info == nil {
		return nil
	}
	key := cacheKey(fileID, info)

	if !fresh {
		if raw, ok := e.cache.Get(ctx, key); ok {
			var res Result
			if err := json.Unmarshal([]byte(raw), &res); err == nil {
				telemetry.CacheHits.WithLabelValues("tiered").Inc()
				return truncated(&res, maxChars)
			}
		}
		telemetry.CacheMisses.Inc()
	}

	data := e.readCapped(ctx, fileID)
	text := e.decode(info.Name, data)
	if len(text) > cachedTextCap {
		text = text[:cachedTextCap]
	}
	res := &Result{Name: info.Name, Text: text, ExtractedAt: time.Now()}

	if raw, err := json.Marshal(res); err == nil {
		e.cache.Set(ctx, key, string(raw), 0)
	}
	return truncated(res, maxChars)
}

// cacheKey derives the version token from the strongest identity signal the
// provider reported: content hash, else etag, else (size, modified time).
// Two entries under the same key are guaranteed to come from byte-identical
// content without re-reading the file.
func cacheKey(fileID string, info *box.Info) string {
	token := info.SHA1
	if token == "" {
		token = info.ETag
	}
	if token == "" {
		token = fmt.Sprintf("%d:%d", info.Size, info.ModifiedAt.Unix())
	}
	return fileID + ":" + token
}

// readCapped reads at most maxBytes from the file's stream. Oversized files
// are truncated, not rejected; the stream is closed as soon as the cap is
// reached.
func (e *Engine) readCapped(ctx context.Context, fileID string) []byte {
	rc := e.gw.OpenReadStream(ctx, fileID)
	if rc == nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, e.maxBytes))
	if err != nil {
		e.logger.Printf("read stream %s: %v", fileID, err)
		return data
	}
	return data
}

// decode dispatches to the registered decoder for the file's extension.
// Decoder errors and panics (third-party parsers on hostile bytes) are both
// absorbed into empty output.
func (e *Engine) decode(name string, data []byte) (text string) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("decoder panic for %s: %v", name, r)
			telemetry.DecodeFailures.WithLabelValues(ext).Inc()
			text = ""
		}
	}()
	if len(data) == 0 {
		return ""
	}
	fn, ok := e.decoders[ext]
	if !ok {
		fn = decodePlain
	}
	out, err := fn(data)
	if err != nil {
		e.logger.Printf("decode %s: %v", name, err)
		telemetry.DecodeFailures.WithLabelValues(ext).Inc()
		return ""
	}
	return out
}

func truncated(res *Result, maxChars int) *Result {
	if maxChars <= 0 || len(res.Text) <= maxChars {
		return res
	}
	clipped := *res
	clipped.Text = clipped.Text[:maxChars]
	return &clipped
}
