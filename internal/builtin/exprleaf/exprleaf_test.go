package exprleaf

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/joeycumines/behave/internal/behavior"
	"github.com/joeycumines/behave/internal/builtin/blackboard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLeaf_Expressions(t *testing.T) {
	t.Parallel()
	bb := new(blackboard.Blackboard)
	bb.Set("battery", 15)
	bb.Set("door", "open")
	bb.Set("items", []int{1, 2, 3})
	e := New(WithBlackboard(bb), WithLogger(discardLogger()))

	tests := []struct {
		expression string
		want       bool
	}{
		{"true", true},
		{"battery < 20", true},
		{"battery < 20 && door == \"closed\"", false},
		{"door in [\"open\", \"ajar\"]", true},
		{"len(items) == 3 && all(items, {# > 0})", true},
		{"missing == nil", true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			fn, err := e.Leaf(tt.expression)
			require.NoError(t, err)
			got, err := fn(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()
	e := New(WithLogger(discardLogger()))

	_, err := e.Compile("")
	require.Error(t, err)

	_, err = e.Compile("battery <")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "battery <")

	// non-boolean expressions are rejected at compile time
	_, err = e.Leaf("1 + 2")
	require.Error(t, err)
	assert.Zero(t, e.Cache().Len())
}

func TestLeaf_InTree(t *testing.T) {
	t.Parallel()
	bb := new(blackboard.Blackboard)
	bb.Set("battery", 15)
	e := New(WithBlackboard(bb), WithLogger(discardLogger()))

	fn, err := e.Leaf("battery < 20")
	require.NoError(t, err)
	pool := behavior.NewPool(behavior.WithLogger(discardLogger()))
	id, err := pool.CreateNodeFunc(behavior.Condition, fn)
	require.NoError(t, err)

	got, err := pool.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, behavior.Success, got)

	// the environment is read at evaluation time
	bb.Set("battery", 80)
	got, err = pool.Execute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, behavior.Failure, got)
}

func TestLeaf_RuntimeErrorAbortsPass(t *testing.T) {
	t.Parallel()
	bb := new(blackboard.Blackboard)
	bb.Set("items", []int{1})
	e := New(WithBlackboard(bb), WithLogger(discardLogger()))

	fn, err := e.Leaf("items[5] > 0")
	require.NoError(t, err)
	pool := behavior.NewPool(behavior.WithLogger(discardLogger()))
	id, err := pool.CreateNodeFunc(behavior.Condition, fn)
	require.NoError(t, err)

	got, err := pool.Execute(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "items[5] > 0")
	assert.Equal(t, behavior.Failure, got)
}

func TestLeaf_Cancelled(t *testing.T) {
	t.Parallel()
	fn, err := New(WithLogger(discardLogger())).Leaf("true")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = fn(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEvaluator_UsesCache(t *testing.T) {
	t.Parallel()
	e := New(WithLogger(discardLogger()))

	first, err := e.Compile("1 < 2")
	require.NoError(t, err)
	second, err := e.Compile("1 < 2")
	require.NoError(t, err)
	assert.Same(t, first, second)

	size, hits, misses := e.Cache().Stats()
	assert.Equal(t, 1, size)
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestProgramCache_Eviction(t *testing.T) {
	t.Parallel()
	e := New(WithCacheSize(2), WithLogger(discardLogger()))
	cache := e.Cache()

	for _, src := range []string{"1 < 2", "2 < 3"} {
		_, err := e.Compile(src)
		require.NoError(t, err)
	}
	// touch the oldest entry, so the next insert evicts "2 < 3"
	_, ok := cache.Get("1 < 2")
	require.True(t, ok)

	_, err := e.Compile("3 < 4")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Get("2 < 3")
	assert.False(t, ok)
	_, ok = cache.Get("1 < 2")
	assert.True(t, ok)

	cache.Resize(1)
	assert.Equal(t, 1, cache.Len())
	cache.Resize(0)
	assert.Equal(t, 1, cache.Len(), "capacity never drops below one")
	assert.Contains(t, cache.String(), "size=1")
}

func TestWithCacheSize_IgnoresZero(t *testing.T) {
	t.Parallel()
	e := New(WithCacheSize(0), WithLogger(discardLogger()))
	assert.Equal(t, DefaultCacheSize, e.Cache().maxSize)
}

func TestNewProgramCache_DefaultSize(t *testing.T) {
	t.Parallel()
	c := NewProgramCache(0)
	assert.Equal(t, DefaultCacheSize, c.maxSize)
}
