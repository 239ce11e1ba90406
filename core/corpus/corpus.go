package corpus

import (
	"fmt"
	"time"

	"github.com/siherrmann/kbrag/helper"
	"github.com/siherrmann/kbrag/model"
)

// Corpus is an immutable snapshot of the knowledge items and their
// index-aligned unit vectors. Zero rows mark items without an embedding.
type Corpus struct {
	Version string
	// Digest covers item metadata, see Digest.
	Digest  string
	Items   []model.KnowledgeItem
	Vectors [][]float32
	Dim     int
	BuiltAt time.Time
}

// New validates the alignment of items and vectors and returns a snapshot.
// Rows are normalized, rows of a different dimension become zero rows.
func New(version string, items []model.KnowledgeItem, vectors [][]float32) (*Corpus, error) {
	if len(items) != len(vectors) {
		return nil, helper.NewError("corpus validation", fmt.Errorf("%d items but %d vectors", len(items), len(vectors)))
	}

	dim := 0
	for _, v := range vectors {
		if !helper.IsZero(v) {
			dim = len(v)
			break
		}
	}
	if dim == 0 {
		return nil, helper.NewError("corpus validation", ErrNoEmbeddings)
	}

	rows := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			rows[i] = make([]float32, dim)
			continue
		}
		rows[i] = helper.Normalize(v)
	}

	return &Corpus{
		Version: version,
		Items:   items,
		Vectors: rows,
		Dim:     dim,
		BuiltAt: time.Now(),
	}, nil
}

// withItems returns a snapshot of items sharing the vectors of c. items must
// have the same Fingerprint as c.Items.
func (c *Corpus) withItems(items []model.KnowledgeItem, digest string) *Corpus {
	return &Corpus{
		Version: c.Version,
		Digest:  digest,
		Items:   items,
		Vectors: c.Vectors,
		Dim:     c.Dim,
		BuiltAt: time.Now(),
	}
}

// Len returns the number of rows, zero for a nil corpus.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// Row returns the vector of row i.
func (c *Corpus) Row(i int) []float32 {
	return c.Vectors[i]
}

// Item returns the item of row i.
func (c *Corpus) Item(i int) *model.KnowledgeItem {
	return &c.Items[i]
}

// Embedded counts the rows with a non-zero vector.
func (c *Corpus) Embedded() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range c.Vectors {
		if !helper.IsZero(v) {
			n++
		}
	}
	return n
}
