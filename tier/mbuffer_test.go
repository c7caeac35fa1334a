package tier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMBufferMessageCountEviction(t *testing.T) {
	mb := NewMBuffer(2, 0, 0)

	require.NoError(t, mb.Put("a", "a"))
	require.NoError(t, mb.Put("b", "b"))
	require.NoError(t, mb.Put("c", "c"))

	_, ok := mb.Get("a")
	assert.False(t, ok)

	v, ok := mb.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = mb.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestMBufferTokenEviction(t *testing.T) {
	mb := NewMBuffer(10, 5, 0)

	require.NoError(t, mb.Put("m1", "one two three")) // 3 tokens
	require.NoError(t, mb.Put("m2", "four five"))     // 2 tokens, at budget
	assert.Equal(t, 5, mb.TokenCount())

	// One more token forces the oldest entry out.
	require.NoError(t, mb.Put("m3", "six"))
	_, ok := mb.Get("m1")
	assert.False(t, ok)
	assert.Equal(t, 3, mb.TokenCount())
}

func TestMBufferOversizeRejection(t *testing.T) {
	mb := NewMBuffer(10, 5, 0)
	require.NoError(t, mb.Put("small", "hello"))

	before := mb.Len()
	beforeTokens := mb.TokenCount()

	err := mb.Put("big", "one two three four five six")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOversize))

	// The failed put must not have touched buffer state.
	assert.Equal(t, before, mb.Len())
	assert.Equal(t, beforeTokens, mb.TokenCount())
	_, ok := mb.Get("big")
	assert.False(t, ok)
}

func TestMBufferTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	mb := NewMBuffer(5, 100, time.Second).WithClock(clock.Now)

	require.NoError(t, mb.Put("x", "test"))
	v, ok := mb.Get("x")
	require.True(t, ok)
	assert.Equal(t, "test", v)

	clock.Advance(1100 * time.Millisecond)
	_, ok = mb.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, mb.TokenCount())
}

func TestMBufferValuesInsertionOrder(t *testing.T) {
	mb := NewMBuffer(0, 0, 0)
	require.NoError(t, mb.Put("1", "first"))
	require.NoError(t, mb.Put("2", "second"))
	require.NoError(t, mb.Put("3", "third"))
	assert.Equal(t, []string{"first", "second", "third"}, mb.Values())
}

func TestMBufferDeleteAdjustsTokens(t *testing.T) {
	mb := NewMBuffer(0, 10, 0)
	require.NoError(t, mb.Put("a", "one two"))
	require.NoError(t, mb.Put("b", "three"))
	mb.Delete("a")
	assert.Equal(t, 1, mb.TokenCount())
	assert.Equal(t, 1, mb.Len())
}

func TestMBufferUpdateOldestKeySurvivesEviction(t *testing.T) {
	mb := NewMBuffer(0, 5, 0)
	require.NoError(t, mb.Put("a", "one"))
	require.NoError(t, mb.Put("b", "two"))
	require.NoError(t, mb.Put("c", "three four"))

	// Growing the oldest key over budget evicts other entries, never the
	// one just written.
	require.NoError(t, mb.Put("a", "five six seven"))

	v, ok := mb.Get("a")
	require.True(t, ok)
	assert.Equal(t, "five six seven", v)
	_, ok = mb.Get("b")
	assert.False(t, ok)
	_, ok = mb.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 5, mb.TokenCount())
}

func TestMBufferUpdateSoleEntryNeverEvicted(t *testing.T) {
	mb := NewMBuffer(0, 5, 0)
	require.NoError(t, mb.Put("only", "one two"))
	require.NoError(t, mb.Put("only", "one two three four five"))

	v, ok := mb.Get("only")
	require.True(t, ok)
	assert.Equal(t, "one two three four five", v)
	assert.Equal(t, 5, mb.TokenCount())
}

func TestMBufferUpdateExistingKey(t *testing.T) {
	mb := NewMBuffer(0, 10, 0)
	require.NoError(t, mb.Put("k", "one two three"))
	require.NoError(t, mb.Put("k", "four"))

	v, ok := mb.Get("k")
	require.True(t, ok)
	assert.Equal(t, "four", v)
	assert.Equal(t, 1, mb.TokenCount())
	assert.Equal(t, 1, mb.Len())
}
