package ascboot

import (
	"container/list"
	"sync"
	"time"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

// Tag correlates an outbound request with the context needed to process its
// reply (§3).
type Tag struct {
	ID      uint64
	Account types.Account
	// StartHash and StartAccount carry the query's start point; which one
	// is meaningful depends on Type.
	StartHash    types.Hash
	StartAccount types.Account
	Type         QueryType
	Time         time.Time
}

// Tags is the correlation table (C5): concurrent lookup by id plus
// traversal in insertion order. No corpus library offers both an id index
// and FIFO-by-insertion-time eviction together (the closest, boost's
// multi_index_container, has no idiomatic Go equivalent in the corpus), so
// this is a justified standard-library structure: a map for the id index
// and a container/list for the FIFO, with each list element holding the tag
// and the map holding the element pointer so both directions are O(1).
//
// Tags carries its own mutex: §5 requires lookup-by-id from Process's
// ingress goroutine to be linearizable against Insert/Expire from the
// worker goroutines, independent of whether the caller also holds the
// wider service mutex.
type Tags struct {
	mu      sync.Mutex
	byID    map[uint64]*list.Element
	order   *list.List // list.Element.Value is *Tag
	maxSize int
}

func NewTags(maxSize int) *Tags {
	return &Tags{
		byID:    make(map[uint64]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

// Insert implements §4.5 insert. Precondition: no tag with the same id
// exists; violated only by a PRNG collision or a caller bug, so it panics
// rather than returning an error, matching the reference source's
// debug_assert(success) on the underlying multi_index insert.
func (t *Tags) Insert(tag Tag) {
	t.mu.Lock()
	defer t.mu.Unlock()

	assertInvariant(len(t.byID) < t.maxSize || t.maxSize <= 0, "tag table at capacity on insert")
	if _, exists := t.byID[tag.ID]; exists {
		panic(assertionError{msg: "duplicate tag id", ctx: []interface{}{"id", tag.ID}})
	}

	cp := tag
	elem := t.order.PushBack(&cp)
	t.byID[tag.ID] = elem
}

// Take implements §4.5 take: remove and return the tag with that id.
func (t *Tags) Take(id uint64) (Tag, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.byID[id]
	if !ok {
		return Tag{}, false
	}
	delete(t.byID, id)
	t.order.Remove(elem)
	return *elem.Value.(*Tag), true
}

// Expire implements §4.5 expire: remove and return, in insertion order,
// every tag whose Time is more than threshold behind now.
func (t *Tags) Expire(now time.Time, threshold time.Duration) []Tag {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []Tag
	for elem := t.order.Front(); elem != nil; {
		tag := elem.Value.(*Tag)
		if now.Sub(tag.Time) <= threshold {
			break
		}
		next := elem.Next()
		t.order.Remove(elem)
		delete(t.byID, tag.ID)
		expired = append(expired, *tag)
		elem = next
	}
	return expired
}

// Size implements §4.5 size.
func (t *Tags) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// Full reports whether the table has reached maxSize; the orchestrator
// blocks new insertions when this is true.
func (t *Tags) Full() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxSize > 0 && len(t.byID) >= t.maxSize
}
