// Package retrieval assembles the knowledge base for one assistant request:
// a chunk-level similarity search when the collaborator can serve it, full
// document extraction otherwise.
package retrieval

import (
	"context"
	"log"
	"strings"

	"github.com/meridianfs/opsportal/config"
	"github.com/meridianfs/opsportal/internal/extract"
	"github.com/meridianfs/opsportal/internal/resolve"
	"github.com/meridianfs/opsportal/internal/telemetry"
)

const sourceHeader = "### Source: "

// Resolver is the slice of the candidate resolver the orchestrator needs.
type Resolver interface {
	ResolveAttachments(ctx context.Context, query string, refs []resolve.AttachmentRef, clientKind string) []resolve.ResolvedFile
	LimitsFor(clientKind string) config.LimitsConfig
}

// Extractor is the slice of the extraction engine the orchestrator needs.
type Extractor interface {
	FreshText(ctx context.Context, fileID string, maxChars int) *extract.Result
}

// KnowledgeBase is the combined extracted text plus the ordered source names
// it was built from. Empty is a valid, reportable outcome.
type KnowledgeBase struct {
	CombinedText string   `json:"combined_text"`
	Citations    []string `json:"citations"`
}

func (kb KnowledgeBase) Empty() bool { return kb.CombinedText == "" }

// Orchestrator tries retrieval strategies in order and returns the first
// non-empty knowledge base. It never raises on partial failure.
type Orchestrator struct {
	resolver  Resolver
	extractor Extractor
	chunks    ChunkSearcher // nil when no collaborator is configured
	logger    *log.Logger
}

func NewOrchestrator(resolver Resolver, extractor Extractor, chunks ChunkSearcher, logger *log.Logger) *Orchestrator {
	return &Orchestrator{resolver: resolver, extractor: extractor, chunks: chunks, logger: logger}
}

// ExtractTextForClient resolves the attachments once, then walks the
// strategy chain: chunk search first, full extraction as the fallback.
// Folder references are expanded for both paths; the collaborator receives
// the resolved file IDs.
func (o *Orchestrator) ExtractTextForClient(ctx context.Context, query string, refs []resolve.AttachmentRef, clientKind string) KnowledgeBase {
	limits := o.resolver.LimitsFor(clientKind)
	files := o.resolver.ResolveAttachments(ctx, query, refs, clientKind)

	strategies := []func(context.Context, string, []resolve.ResolvedFile, config.LimitsConfig) (KnowledgeBase, bool){
		o.fromChunkSearch,
		o.fromFullExtraction,
	}
	for _, strategy := range strategies {
		if kb, ok := strategy(ctx, query, files, limits); ok {
			return kb
		}
	}
	return KnowledgeBase{}
}

// fromChunkSearch asks the similarity-search collaborator for the top-K
// chunks across the resolved files. Unavailable, erroring, or empty results
// all yield (_, false) so the chain moves on.
func (o *Orchestrator) fromChunkSearch(ctx context.Context, query string, files []resolve.ResolvedFile, limits config.LimitsConfig) (KnowledgeBase, bool) {
	if o.chunks == nil || len(files) == 0 {
		return KnowledgeBase{}, false
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	chunks, err := o.chunks.Search(ctx, query, ids, limits.TopK)
	if err != nil {
		o.logger.Printf("chunk search unavailable, falling back: %v", err)
		telemetry.ChunkSearchFallbacks.Inc()
		return KnowledgeBase{}, false
	}
	if len(chunks) == 0 {
		telemetry.ChunkSearchFallbacks.Inc()
		return KnowledgeBase{}, false
	}

	var (
		blocks    []string
		citations []string
		seen      = map[string]struct{}{}
	)
	for _, ch := range chunks {
		blocks = append(blocks, sourceHeader+ch.FileName+"\n"+ch.Text)
		if _, dup := seen[ch.FileName]; !dup {
			seen[ch.FileName] = struct{}{}
			citations = append(citations, ch.FileName)
		}
	}
	return KnowledgeBase{CombinedText: strings.Join(blocks, "\n\n"), Citations: citations}, true
}

// fromFullExtraction runs the extraction engine over the resolved files,
// accumulating source blocks until the total budget would be exceeded and
// clipping the final block to the remaining room. Always succeeds; an empty
// knowledge base is its terminal answer.
func (o *Orchestrator) fromFullExtraction(ctx context.Context, _ string, files []resolve.ResolvedFile, limits config.LimitsConfig) (KnowledgeBase, bool) {
	var (
		blocks    []string
		citations []string
		total     int
	)
	for i, f := range files {
		if i >= limits.MaxFiles || total >= limits.MaxTotalChars {
			break
		}
		if ctx.Err() != nil {
			break
		}
		res := o.extractor.FreshText(ctx, f.ID, limits.PerDocChars)
		if res == nil || strings.TrimSpace(res.Text) == "" {
			continue
		}
		block := sourceHeader + res.Name + "\n" + res.Text
		if remaining := limits.MaxTotalChars - total; len(block) > remaining {
			block = block[:remaining]
		}
		blocks = append(blocks, block)
		citations = append(citations, res.Name)
		total += len(block)
	}
	return KnowledgeBase{CombinedText: strings.Join(blocks, "\n\n"), Citations: citations}, true
}
