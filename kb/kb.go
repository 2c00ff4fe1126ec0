// Package kb implements local knowledge bases: directories of documents
// chunked, indexed into a sqlite store, and searched with lexical scoring.
// Agents bind a knowledge base to have relevant chunks injected into their
// conversations.
package kb

import "context"

// Hit is one search result, ordered by descending score.
type Hit struct {
	Text      string
	Source    string
	StartLine int
	EndLine   int
	Score     float64
}

// IndexOptions controls which files are indexed and how they are chunked.
type IndexOptions struct {
	Extensions   []string
	Recursive    bool
	ChunkSize    int
	ChunkOverlap int
}

func (o IndexOptions) withDefaults() IndexOptions {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".md", ".txt", ".go", ".py", ".js", ".ts", ".strand"}
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 500
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = 50
	}
	return o
}

// Searcher is the read side of a knowledge base. Results with a score below
// threshold are dropped; pass 0 to keep everything.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]Hit, error)
}

// Base is a fully operable knowledge base.
type Base interface {
	Searcher

	// Index (re)builds the store from the source directory and returns the
	// number of chunks written.
	Index(ctx context.Context, opts IndexOptions) (int, error)

	// IsIndexed reports whether the store holds any chunks, including chunks
	// persisted by an earlier run.
	IsIndexed(ctx context.Context) (bool, error)
}

// Open returns a sqlite-backed knowledge base rooted at dir. The index lives
// in dir/.strand_index/index.db and survives across runs.
func Open(dir string) (Base, error) {
	return openLocal(dir)
}
