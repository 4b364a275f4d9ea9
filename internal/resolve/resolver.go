package resolve

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/meridianfs/opsportal/config"
	"github.com/meridianfs/opsportal/internal/cache"
	"github.com/meridianfs/opsportal/internal/repository/box"
	"github.com/meridianfs/opsportal/internal/telemetry"
)

// Gateway is the slice of the repository client the resolver needs.
type Gateway interface {
	ListFolderItems(ctx context.Context, folderID string) []box.Item
	FileInfo(ctx context.Context, id string) *box.Info
	IsUnderRoot(ctx context.Context, id, kind string) bool
}

// Resolver expands attachment references into a capped, ranked file set.
type Resolver struct {
	gw        Gateway
	limits    map[string]config.LimitsConfig
	folders   cache.Cache
	folderTTL time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func New(gw Gateway, limits map[string]config.LimitsConfig, folderCache cache.Cache, folderTTL time.Duration, logger *log.Logger) *Resolver {
	return &Resolver{
		gw:        gw,
		limits:    limits,
		folders:   folderCache,
		folderTTL: folderTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// LimitsFor returns the profile for a client kind, falling back to the
// tightest shipped profile for unknown kinds.
func (r *Resolver) LimitsFor(clientKind string) config.LimitsConfig {
	if l, ok := r.limits[clientKind]; ok {
		return l
	}
	return r.limits[config.ClientWidget]
}

// ResolveAttachments processes each reference in order. Explicit file
// references are trusted intent: they join the resolved set directly (after
// the subtree check) and are never dropped by ranking. Folder references are
// expanded breadth-first into a candidate pool that ranking cuts down to
// whatever room is left under maxFiles.
func (r *Resolver) ResolveAttachments(ctx context.Context, query string, refs []AttachmentRef, clientKind string) []ResolvedFile {
	started := time.Now()
	limits := r.LimitsFor(clientKind)

	var (
		resolved     []ResolvedFile
		resolvedIDs  = map[string]struct{}{}
		candidates   []CandidateFile
		candidateIDs = map[string]struct{}{}
		visited      = map[string]struct{}{}
	)

	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		switch ref.Type {
		case RefTypeFile:
			if len(resolved) >= limits.MaxFiles {
				continue
			}
			if _, dup := resolvedIDs[ref.ID]; dup {
				continue
			}
			if !r.gw.IsUnderRoot(ctx, ref.ID, box.KindFile) {
				r.logger.Printf("dropping file ref %s: outside root subtree", ref.ID)
				continue
			}
			info := r.gw.FileInfo(ctx, ref.ID)
			if info == nil {
				continue
			}
			resolvedIDs[ref.ID] = struct{}{}
			resolved = append(resolved, ResolvedFile{ID: info.ID, Name: info.Name, Size: info.Size, Kind: box.KindFile})
		case RefTypeFolder:
			if !r.gw.IsUnderRoot(ctx, ref.ID, box.KindFolder) {
				r.logger.Printf("dropping folder ref %s: outside root subtree", ref.ID)
				continue
			}
			r.traverse(ctx, ref.ID, limits, visited, candidateIDs, &candidates)
		default:
			r.logger.Printf("ignoring attachment ref with unknown type %q", ref.Type)
		}
	}

	if remaining := limits.MaxFiles - len(resolved); remaining > 0 && len(candidates) > 0 {
		for _, c := range SelectTopRelevant(query, candidates, limits.MaxFiles, r.now()) {
			if _, dup := resolvedIDs[c.ID]; dup {
				continue
			}
			resolvedIDs[c.ID] = struct{}{}
			resolved = append(resolved, ResolvedFile{ID: c.ID, Name: c.Name, Size: c.Size, Kind: box.KindFile})
			remaining--
			if remaining == 0 {
				break
			}
		}
	}

	telemetry.ResolveDuration.Observe(time.Since(started).Seconds())
	telemetry.ResolvedFiles.Observe(float64(len(resolved)))
	return resolved
}

// traverse walks a folder subtree breadth-first. The visited set is shared
// across all folder refs of one resolution pass, so overlapping references
// and cyclic ancestry data cannot loop. Traversal halts as soon as the
// candidate pool reaches maxScan.
func (r *Resolver) traverse(ctx context.Context, folderID string, limits config.LimitsConfig, visited, candidateIDs map[string]struct{}, candidates *[]CandidateFile) {
	type frame struct {
		id    string
		depth int
	}
	queue := []frame{{id: folderID}}
	for len(queue) > 0 {
		if ctx.Err() != nil || len(*candidates) >= limits.MaxScan {
			return
		}
		head := queue[0]
		queue = queue[1:]
		if _, seen := visited[head.id]; seen {
			continue
		}
		visited[head.id] = struct{}{}

		for _, item := range r.listChildren(ctx, head.id) {
			switch item.Type {
			case box.KindFile:
				if _, dup := candidateIDs[item.ID]; dup {
					continue
				}
				candidateIDs[item.ID] = struct{}{}
				*candidates = append(*candidates, CandidateFile{
					ID:         item.ID,
					Name:       item.Name,
					Size:       item.Size,
					ModifiedAt: item.ModifiedAt,
				})
				if len(*candidates) >= limits.MaxScan {
					return
				}
			case box.KindFolder:
				if head.depth < limits.MaxDepth {
					queue = append(queue, frame{id: item.ID, depth: head.depth + 1})
				}
			}
		}
	}
}

// listChildren lists a folder's direct children through a short-TTL cache so
// repeated or overlapping traversals do not hammer the provider.
func (r *Resolver) listChildren(ctx context.Context, folderID string) []box.Item {
	key := "folder-items:" + folderID
	if r.folders != nil {
		if raw, ok := r.folders.Get(ctx, key); ok {
			var items []box.Item
			if err := json.Unmarshal([]byte(raw), &items); err == nil {
				return items
			}
		}
	}
	items := r.gw.ListFolderItems(ctx, folderID)
	if r.folders != nil && items != nil {
		if raw, err := json.Marshal(items); err == nil {
			r.folders.Set(ctx, key, string(raw), r.folderTTL)
		}
	}
	return items
}
