package state

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Ring is a bounded buffer that keeps the newest entries. Entries are
// keyed by insertion sequence so the cache's eviction order drops the oldest.
type Ring[T any] struct {
	cache *lru.Cache
	seq   uint64
}

// NewRing creates a ring holding at most size entries
func NewRing[T any](size int) (*Ring[T], error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create ring buffer: %w", err)
	}
	return &Ring[T]{cache: cache}, nil
}

// Push appends one entry, evicting the oldest when full
func (r *Ring[T]) Push(v T) {
	r.seq++
	r.cache.Add(r.seq, v)
}

// Items returns the entries newest first
func (r *Ring[T]) Items() []T {
	keys := r.cache.Keys()
	out := make([]T, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if v, ok := r.cache.Peek(keys[i]); ok {
			out = append(out, v.(T))
		}
	}
	return out
}

// Len returns the number of entries held
func (r *Ring[T]) Len() int {
	return r.cache.Len()
}

// Reset drops every entry
func (r *Ring[T]) Reset() {
	r.cache.Purge()
}
