package types

import "time"

// Kind discriminates the result shapes a search can produce.
type Kind string

const (
	// KindFile is a file whose name (and optional content filter) matched.
	KindFile Kind = "file"
	// KindContent is a single matching line inside a file.
	KindContent Kind = "content"
	// KindFolder is a directory whose name matched.
	KindFolder Kind = "folder"
)

// Match is one search result. Kind selects which fields carry meaning:
// file and folder matches describe the entry itself, content matches point
// at one line inside a file. A Match is immutable once emitted.
type Match struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`

	// Content fields. Line numbers start at 1. SpanStart/SpanEnd are byte
	// offsets of the matched region within Text (end exclusive).
	Line      int    `json:"line"`
	Text      string `json:"text,omitempty"`
	SpanStart int    `json:"span_start"`
	SpanEnd   int    `json:"span_end"`

	// File and folder fields.
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time,omitzero"`
	ContentHit bool      `json:"content_hit,omitempty"`
	FileCount  int       `json:"file_count,omitempty"`
}

// FileMatch builds a file result.
func FileMatch(path string, size int64, mod time.Time, contentHit bool) Match {
	return Match{Kind: KindFile, Path: path, Size: size, ModTime: mod, ContentHit: contentHit}
}

// ContentMatch builds a matching-line result.
func ContentMatch(path string, line int, text string, start, end int) Match {
	return Match{Kind: KindContent, Path: path, Line: line, Text: text, SpanStart: start, SpanEnd: end}
}

// FolderMatch builds a directory result. fileCount counts entries directly
// inside the directory, not the whole subtree.
func FolderMatch(path string, mod time.Time, contentHit bool, fileCount int) Match {
	return Match{Kind: KindFolder, Path: path, ModTime: mod, ContentHit: contentHit, FileCount: fileCount}
}
