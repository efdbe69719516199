package memstore

import (
	"sort"
	"sync"

	"github.com/jordanlanch/campusflow/pkg/store"
)

// collection is a mutex-guarded map of documents keyed by id. Values are
// copied on the way in and out so callers never share memory with the store.
type collection[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
	seq   map[string]int
	next  int
	clone func(*T) *T
}

func newCollection[T any](clone func(*T) *T) *collection[T] {
	return &collection[T]{
		items: make(map[string]*T),
		seq:   make(map[string]int),
		clone: clone,
	}
}

// insert adds v under id. conflict, when non-nil, is checked against every
// stored document under the same lock to emulate unique indexes.
func (c *collection[T]) insert(id string, v *T, conflict func(*T) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; ok {
		return store.ErrDuplicate
	}
	if conflict != nil {
		for _, existing := range c.items {
			if conflict(existing) {
				return store.ErrDuplicate
			}
		}
	}
	c.items[id] = c.clone(v)
	c.seq[id] = c.next
	c.next++
	return nil
}

func (c *collection[T]) get(id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c.clone(v), nil
}

func (c *collection[T]) replace(id string, v *T, conflict func(*T) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return store.ErrNotFound
	}
	if conflict != nil {
		for otherID, existing := range c.items {
			if otherID != id && conflict(existing) {
				return store.ErrDuplicate
			}
		}
	}
	c.items[id] = c.clone(v)
	return nil
}

// mutate applies fn to the stored document in place under the write lock.
func (c *collection[T]) mutate(id string, fn func(*T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	if !ok {
		return store.ErrNotFound
	}
	return fn(v)
}

func (c *collection[T]) remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.items, id)
	delete(c.seq, id)
	return nil
}

// filter returns copies of the matching documents in insertion order.
func (c *collection[T]) filter(match func(*T) bool) []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.items))
	for id, v := range c.items {
		if match == nil || match(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return c.seq[ids[i]] < c.seq[ids[j]] })
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.clone(c.items[id]))
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
