package behavior

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, options ...Option) *Pool {
	t.Helper()
	options = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, options...)
	return NewPool(options...)
}

// stub is an instrumented leaf callback.
type stub struct {
	name   string
	result bool
	calls  int
	trace  *[]string
}

func (p *stub) callback() bool {
	p.calls++
	if p.trace != nil {
		*p.trace = append(*p.trace, p.name)
	}
	return p.result
}

func leaf(t *testing.T, pool *Pool, p *stub) NodeID {
	t.Helper()
	id, err := pool.Action(p.callback)
	require.NoError(t, err)
	return id
}

func mustNode(t *testing.T) func(NodeID, error) NodeID {
	return func(id NodeID, err error) NodeID {
		t.Helper()
		require.NoError(t, err)
		return id
	}
}

func mustDecorator(t *testing.T) func(DecoratorID, error) DecoratorID {
	return func(id DecoratorID, err error) DecoratorID {
		t.Helper()
		require.NoError(t, err)
		return id
	}
}

// sleepRecorder is a Sleeper that records requested durations without
// blocking.
type sleepRecorder struct {
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return ctx.Err()
}
