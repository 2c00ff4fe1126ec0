package kb

import (
	"context"
	"sort"
)

// Mock is an in-memory knowledge base for tests. Add seeds chunks directly;
// Index is a no-op that marks the base indexed.
type Mock struct {
	hits    []Hit
	indexed bool
}

// NewMock returns an empty mock knowledge base.
func NewMock() *Mock { return &Mock{} }

// Add seeds a chunk with a fixed score.
func (m *Mock) Add(text, source string, score float64) {
	m.hits = append(m.hits, Hit{Text: text, Source: source, Score: score})
	m.indexed = true
}

func (m *Mock) Index(_ context.Context, _ IndexOptions) (int, error) {
	m.indexed = true
	return len(m.hits), nil
}

func (m *Mock) IsIndexed(_ context.Context) (bool, error) {
	return m.indexed, nil
}

func (m *Mock) Search(_ context.Context, _ string, limit int, threshold float64) ([]Hit, error) {
	out := make([]Hit, 0, len(m.hits))
	for _, h := range m.hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
