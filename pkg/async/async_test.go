package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/pkg/async"
)

func TestGo(t *testing.T) {
	t.Parallel()

	t.Run("runs concurrently", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		var started atomic.Int32

		wait := func(ctx context.Context) (int, error) {
			started.Add(1)
			<-release
			return 1, nil
		}
		a := async.Go(context.Background(), wait)
		b := async.Go(context.Background(), wait)

		require.Eventually(t, func() bool { return started.Load() == 2 }, time.Second, time.Millisecond)
		close(release)

		ra, err := a.Await(context.Background())
		require.NoError(t, err)
		rb, err := b.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, ra+rb)
	})

	t.Run("propagates error", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		f := async.Go(context.Background(), func(context.Context) (string, error) { return "", boom })
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("canceled context skips fn", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		f := async.Go(ctx, func(context.Context) (int, error) { called = true; return 0, nil })
		_, err := f.Await(context.Background())
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("await honours its own context", func(t *testing.T) {
		t.Parallel()
		block := make(chan struct{})
		defer close(block)
		f := async.Go(context.Background(), func(context.Context) (int, error) { <-block; return 0, nil })

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
