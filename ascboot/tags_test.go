package ascboot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitelabs/go-vite-ascending/common/types"
)

func TestTags_InsertAndTake(t *testing.T) {
	tags := NewTags(8)
	tag := Tag{ID: 1, Account: types.RandomAccount(), Time: time.Now()}
	tags.Insert(tag)

	got, ok := tags.Take(1)
	require.True(t, ok)
	assert.Equal(t, tag.Account, got.Account)

	_, ok = tags.Take(1)
	assert.False(t, ok, "second take of the same id must miss")
}

func TestTags_DuplicateIDPanics(t *testing.T) {
	tags := NewTags(8)
	tags.Insert(Tag{ID: 42, Time: time.Now()})

	assert.Panics(t, func() {
		tags.Insert(Tag{ID: 42, Time: time.Now()})
	})
}

func TestTags_TakeUnknownMisses(t *testing.T) {
	tags := NewTags(8)
	_, ok := tags.Take(999)
	assert.False(t, ok)
}

// S5 - Timeout: a tag aged past the threshold is expired, and a later Take
// for that id misses (the orchestrator records missing_tag on it).
func TestTags_ExpireRemovesStaleTags(t *testing.T) {
	tags := NewTags(8)
	old := time.Now().Add(-10 * time.Second)
	tags.Insert(Tag{ID: 1, Time: old})
	tags.Insert(Tag{ID: 2, Time: time.Now()})

	expired := tags.Expire(time.Now(), 3*time.Second)

	require.Len(t, expired, 1)
	assert.Equal(t, uint64(1), expired[0].ID)
	assert.Equal(t, 1, tags.Size())

	_, ok := tags.Take(1)
	assert.False(t, ok)
}

func TestTags_ExpirePreservesInsertionOrder(t *testing.T) {
	tags := NewTags(8)
	base := time.Now().Add(-10 * time.Second)
	tags.Insert(Tag{ID: 1, Time: base})
	tags.Insert(Tag{ID: 2, Time: base.Add(time.Millisecond)})
	tags.Insert(Tag{ID: 3, Time: base.Add(2 * time.Millisecond)})

	expired := tags.Expire(time.Now(), time.Second)

	require.Len(t, expired, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{expired[0].ID, expired[1].ID, expired[2].ID})
}

func TestTags_FullBoundary(t *testing.T) {
	tags := NewTags(1)
	assert.False(t, tags.Full())
	tags.Insert(Tag{ID: 1, Time: time.Now()})
	assert.True(t, tags.Full())
}
