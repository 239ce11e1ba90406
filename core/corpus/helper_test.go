package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/siherrmann/kbrag/model"
)

// fakeEmbedder returns fixed vectors per text and counts calls.
type fakeEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
}

func (f *fakeEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := f.vectors[text]
	if !ok {
		return nil, errors.New("embedding provider down")
	}
	return v, nil
}

func testItems(n int) []model.KnowledgeItem {
	items := make([]model.KnowledgeItem, n)
	for i := range items {
		items[i] = model.KnowledgeItem{
			ID:      fmt.Sprintf("manual:%d", i),
			Content: fmt.Sprintf("content %d", i),
			Type:    model.ItemTypeGuide,
		}
	}
	return items
}

// embedderFor embeds every item of items as a distinct axis vector.
func embedderFor(items []model.KnowledgeItem, dim int) *fakeEmbedder {
	f := &fakeEmbedder{vectors: map[string][]float32{}}
	for i, item := range items {
		v := make([]float32, dim)
		v[i%dim] = float32(i + 1)
		v[(i+1)%dim] = 1
		f.vectors[item.Content] = v
	}
	return f
}
