package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accountbilling/pkg/mongo/mongotest"
	"github.com/dmitrymomot/accountbilling/pkg/queue"
)

func TestMongoStorage_ClaimIsExclusive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := queue.NewMongoStorage(mongotest.Database(t))
	require.NoError(t, s.EnsureIndexes(ctx))

	const tasks, workers = 40, 8
	for range tasks {
		require.NoError(t, s.CreateTask(ctx, newTask("paypal", queue.PriorityMedium, time.Now().Add(-time.Second))))
	}

	var (
		mu      sync.Mutex
		claimed = make(map[uuid.UUID]uuid.UUID)
		wg      sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			workerID := uuid.New()
			for {
				task, err := s.ClaimTask(ctx, workerID, []string{"paypal"}, time.Minute)
				if errors.Is(err, queue.ErrNoTaskToClaim) {
					return
				}
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				prev, dup := claimed[task.ID]
				claimed[task.ID] = workerID
				mu.Unlock()
				assert.False(t, dup, "task %s claimed by %s and %s", task.ID, prev, workerID)
				assert.Equal(t, queue.TaskStatusProcessing, task.Status)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, tasks)
}

func TestMongoStorage_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := queue.NewMongoStorage(mongotest.Database(t))
	first, second := uuid.New(), uuid.New()

	task := newTask("paypal", queue.PriorityHigh, time.Now().Add(-time.Second))
	require.NoError(t, s.CreateTask(ctx, task))
	assert.ErrorIs(t, s.CreateTask(ctx, task), queue.ErrTaskExists)

	t.Run("other queues are ignored", func(t *testing.T) {
		_, err := s.ClaimTask(ctx, first, []string{"stripe"}, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
	})

	// an already expired lock lets the next worker take over
	claimed, err := s.ClaimTask(ctx, first, []string{"paypal"}, -time.Second)
	require.NoError(t, err)
	assert.Equal(t, task.ID, claimed.ID)

	claimed, err = s.ClaimTask(ctx, second, []string{"paypal"}, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed.LockedBy)
	assert.Equal(t, second, *claimed.LockedBy)

	_, err = s.ClaimTask(ctx, first, []string{"paypal"}, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)

	require.NoError(t, s.FailTask(ctx, task.ID, "boom", time.Now().Add(-time.Second)))
	claimed, err = s.ClaimTask(ctx, first, []string{"paypal"}, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, claimed.RetryCount)
	require.NotNil(t, claimed.Error)
	assert.Equal(t, "boom", *claimed.Error)

	require.NoError(t, s.CompleteTask(ctx, task.ID))
	_, err = s.ClaimTask(ctx, second, []string{"paypal"}, time.Minute)
	assert.ErrorIs(t, err, queue.ErrNoTaskToClaim)
}
