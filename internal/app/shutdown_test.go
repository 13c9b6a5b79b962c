package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShutdownHandler_ReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		sh.AddFunc(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestShutdownHandler_JoinsErrors(t *testing.T) {
	sh := NewShutdownHandler(nil, time.Second)
	errA := errors.New("a failed")

	ran := false
	sh.AddFunc("ok", func() error { ran = true; return nil })
	sh.AddFunc("a", func() error { return errA })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.Contains(t, err.Error(), "a: a failed")
	assert.True(t, ran, "a failing step does not stop the rest")
}

func TestShutdownHandler_Timeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 50*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	sh.AddFunc("stuck", func() error {
		<-release
		return nil
	})

	start := time.Now()
	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestShutdownHandler_RunsOnce(t *testing.T) {
	sh := NewShutdownHandler(nil, 0)

	calls := 0
	sh.AddFunc("count", func() error { calls++; return nil })

	require.NoError(t, sh.Shutdown(context.Background()))
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)

	sh.AddFunc("late", func() error { calls++; return nil })
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, 1, calls)
}
