package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"

	"github.com/siherrmann/kbrag/model"
)

// Source supplies the ordered knowledge items.
type Source interface {
	LoadItems(ctx context.Context) ([]model.KnowledgeItem, error)
}

// SyncSource is a Source that flags new knowledge.
type SyncSource interface {
	Source
	PendingUpdate(ctx context.Context) (bool, error)
	// ConfirmSync clears the flag and reports whether it was set.
	ConfirmSync(ctx context.Context) (bool, error)
}

// Fingerprint hashes id, type and content of items in order.
// It is used as the corpus version and keys the vector cache, vectors only
// depend on content.
func Fingerprint(items []model.KnowledgeItem) string {
	h := sha256.New()
	for _, item := range items {
		h.Write([]byte(item.ID))
		h.Write([]byte{0})
		h.Write([]byte(item.Type))
		h.Write([]byte{0})
		h.Write([]byte(item.Content))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the complete items in order, metadata included. Items with
// the same Fingerprint but a different Digest reuse their vectors.
func Digest(items []model.KnowledgeItem) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CacheKey scopes a corpus version to an embedding model, vectors of
// different models must never be mixed.
func CacheKey(modelID string, version string) string {
	if modelID == "" {
		return version
	}
	sum := sha256.Sum256([]byte(modelID + "\x00" + version))
	return hex.EncodeToString(sum[:])
}

// StaticSource is an in-memory SyncSource.
type StaticSource struct {
	mu      sync.RWMutex
	items   []model.KnowledgeItem
	pending bool
}

// NewStaticSource creates a source serving items.
func NewStaticSource(items ...model.KnowledgeItem) *StaticSource {
	return &StaticSource{items: slices.Clone(items)}
}

// LoadItems returns a copy of the items.
func (s *StaticSource) LoadItems(ctx context.Context) ([]model.KnowledgeItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items), nil
}

// SetItems replaces the items and raises the pending flag.
func (s *StaticSource) SetItems(items ...model.KnowledgeItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
	s.pending = true
}

// PendingUpdate reports whether SetItems was called since the last confirm.
func (s *StaticSource) PendingUpdate(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending, nil
}

// ConfirmSync clears the pending flag.
func (s *StaticSource) ConfirmSync(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.pending
	s.pending = false
	return was, nil
}
