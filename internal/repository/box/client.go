// Package box is a thin client to the Box document repository. It is the
// only component that talks to the provider; every failure at this layer is
// logged and degraded to "no data" so traversal and extraction never crash on
// provider hiccups.
package box

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"

	"github.com/meridianfs/opsportal/config"
	"github.com/meridianfs/opsportal/internal/telemetry"
)

const (
	KindFile   = "file"
	KindFolder = "folder"
)

// Item is one direct child of a folder, or the identity fields of a file.
type Item struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	SHA1       string    `json:"sha1,omitempty"`
	ETag       string    `json:"etag,omitempty"`
}

// PathEntry is one ancestor in an entity's path collection, root first.
type PathEntry struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Info is file or folder metadata including ancestry.
type Info struct {
	Item
	PathCollection struct {
		TotalCount int         `json:"total_count"`
		Entries    []PathEntry `json:"entries"`
	} `json:"path_collection"`
}

// Client talks to the Box API. A zero-value or unconfigured client returns
// empty results from every method.
type Client struct {
	http     *httpClient
	baseURL  string
	token    string
	rootID   string
	pageSize int
	logger   *log.Logger
}

func New(cfg config.BoxConfig, logger *log.Logger) *Client {
	c := &Client{
		http:     newHTTPClient(cfg.Timeout, cfg.MaxRetries),
		rootID:   cfg.RootFolderID,
		pageSize: cfg.PageSize,
		logger:   logger,
	}
	if cfg.Configured() {
		c.baseURL = cfg.BaseURL
		c.token = cfg.Token
	}
	return c
}

func (c *Client) configured() bool { return c.baseURL != "" && c.token != "" }

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.token}
}

// ListFolderItems returns the direct children of a folder, bounded to one
// page. Provider errors yield an empty list.
func (c *Client) ListFolderItems(ctx context.Context, folderID string) []Item {
	if !c.configured() {
		return nil
	}
	u := fmt.Sprintf("%s/folders/%s/items?limit=%d&fields=%s",
		c.baseURL, url.PathEscape(folderID), c.pageSize,
		url.QueryEscape("id,type,name,size,modified_at,sha1,etag"))
	var raw struct {
		Entries []Item `json:"entries"`
	}
	if err := c.http.doJSON(ctx, u, c.headers(), &raw); err != nil {
		c.logger.Printf("list folder %s: %v", folderID, err)
		telemetry.ProviderErrors.WithLabelValues("list").Inc()
		return nil
	}
	return raw.Entries
}

// FileInfo returns file metadata including ancestry, or nil on not-found,
// provider error, or unconfigured client.
func (c *Client) FileInfo(ctx context.Context, id string) *Info {
	return c.info(ctx, "files", id)
}

// FolderInfo returns folder metadata including ancestry, or nil.
func (c *Client) FolderInfo(ctx context.Context, id string) *Info {
	return c.info(ctx, "folders", id)
}

func (c *Client) info(ctx context.Context, resource, id string) *Info {
	if !c.configured() {
		return nil
	}
	u := fmt.Sprintf("%s/%s/%s?fields=%s",
		c.baseURL, resource, url.PathEscape(id),
		url.QueryEscape("id,type,name,size,modified_at,sha1,etag,path_collection"))
	var info Info
	if err := c.http.doJSON(ctx, u, c.headers(), &info); err != nil {
		c.logger.Printf("get %s %s: %v", resource, id, err)
		telemetry.ProviderErrors.WithLabelValues("info").Inc()
		return nil
	}
	return &info
}

// IsUnderRoot is the sole authorization gate before any content is read:
// true iff id equals the configured root or the root appears in the entity's
// ancestry path.
func (c *Client) IsUnderRoot(ctx context.Context, id, kind string) bool {
	if c.rootID == "" {
		return false
	}
	if id == c.rootID {
		return true
	}
	var info *Info
	switch kind {
	case KindFolder:
		info = c.FolderInfo(ctx, id)
	default:
		info = c.FileInfo(ctx, id)
	}
	if info == nil {
		return false
	}
	for _, p := range info.PathCollection.Entries {
		if p.ID == c.rootID {
			return true
		}
	}
	return false
}

// OpenReadStream opens the file's content stream, or nil on any failure.
// The caller owns closing the stream and capping how much it reads.
func (c *Client) OpenReadStream(ctx context.Context, id string) io.ReadCloser {
	if !c.configured() {
		return nil
	}
	u := fmt.Sprintf("%s/files/%s/content", c.baseURL, url.PathEscape(id))
	rc, err := c.http.doStream(ctx, u, c.headers())
	if err != nil {
		c.logger.Printf("open stream %s: %v", id, err)
		telemetry.ProviderErrors.WithLabelValues("stream").Inc()
		return nil
	}
	return rc
}
