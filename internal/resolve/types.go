// Package resolve turns attachment references into a bounded, ranked set of
// repository files that will actually be read for content.
package resolve

import "time"

// Attachment reference types accepted from the route layer.
const (
	RefTypeFile   = "box_file"
	RefTypeFolder = "box_folder"
)

// AttachmentRef is one inbound reference to a file or folder.
type AttachmentRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// CandidateFile is a file discovered during folder traversal, not yet
// guaranteed to survive ranking. Identity is ID, unique within one
// resolution pass; ordering is insertion order until ranked.
type CandidateFile struct {
	ID         string
	Name       string
	Size       int64
	ModifiedAt time.Time // zero when the provider reported none
}

// ResolvedFile is a file that passed authorization and (for traversal
// candidates) relevance ranking.
type ResolvedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	Kind string `json:"kind"` // always "file"
}
