package pipeline

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformedResponse is returned for bodies without a recognizable embedding.
var ErrMalformedResponse = errors.New("malformed embedding response")

// ParseEmbedding extracts the first embedding of a provider response.
// Accepted shapes, tried in this order:
//
//	{"data":[{"embedding":[...]}]}
//	{"embedding":[...]}
//	{"embeddings":[[...]]} or {"embeddings":[...]}
//	{"vectors":[...]}
//	[[...]] or [...]
//
// An empty array yields an empty slice.
func ParseEmbedding(body []byte) ([]float32, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)

	var vector gjson.Result
	switch {
	case root.IsObject():
		if data := root.Get("data.0.embedding"); data.IsArray() {
			vector = data
		} else if emb := root.Get("embedding"); emb.IsArray() {
			vector = emb
		} else if embs := root.Get("embeddings"); embs.IsArray() && len(embs.Array()) > 0 {
			vector = firstRow(embs)
		} else if vecs := root.Get("vectors"); vecs.IsArray() {
			vector = vecs
		}
	case root.IsArray():
		vector = firstRow(root)
	}

	if !vector.IsArray() {
		return nil, fmt.Errorf("%w: no embedding found", ErrMalformedResponse)
	}

	values := vector.Array()
	embedding := make([]float32, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, fmt.Errorf("%w: element %d is %s", ErrMalformedResponse, i, v.Type)
		}
		embedding[i] = float32(v.Float())
	}

	return embedding, nil
}

// firstRow returns the first row of a nested array or the array itself.
func firstRow(arr gjson.Result) gjson.Result {
	if first := arr.Get("0"); first.IsArray() {
		return first
	}
	return arr
}
