package queue

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopBatchFIFO(t *testing.T) {
	t.Parallel()

	q := New[int](0)
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Push(i))
	}
	assert.Equal(t, 5, q.Len())

	batch := q.PopBatch(nil, 3)
	assert.Equal(t, []int{1, 2, 3}, batch)
	batch = q.PopBatch(batch, 3)
	assert.Equal(t, []int{4, 5}, batch)
	assert.Equal(t, 0, q.Len())
}

func TestPopBatchReturnsEmptyWhenDoneAndDrained(t *testing.T) {
	t.Parallel()

	q := New[string](0)
	require.NoError(t, q.Push("last"))
	q.SetDone()

	assert.Equal(t, []string{"last"}, q.PopBatch(nil, 10))
	assert.Empty(t, q.PopBatch(nil, 10))
	assert.ErrorIs(t, q.Push("late"), ErrDone)
}

func TestPopBatchBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := New[int](0)
	got := make(chan []int, 1)
	go func() { got <- q.PopBatch(nil, 4) }()

	select {
	case <-got:
		t.Fatal("PopBatch returned on an empty, open queue")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, q.Push(7))
	select {
	case batch := <-got:
		assert.Equal(t, []int{7}, batch)
	case <-time.After(2 * time.Second):
		t.Fatal("PopBatch did not wake after Push")
	}
}

func TestSetDoneWakesAllWaiters(t *testing.T) {
	t.Parallel()

	q := New[int](0)
	const waiters = 4
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Empty(t, q.PopBatch(nil, 1))
		}()
	}
	time.Sleep(20 * time.Millisecond)
	q.SetDone()

	finished := make(chan struct{})
	go func() { wg.Wait(); close(finished) }()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("waiters still blocked after SetDone")
	}
}

func TestClearResetsDone(t *testing.T) {
	t.Parallel()

	q := New[int](0)
	require.NoError(t, q.Push(1))
	q.SetDone()
	require.True(t, q.Done())

	q.Clear()
	assert.False(t, q.Done())
	assert.Equal(t, 0, q.Len())
	require.NoError(t, q.Push(2))
	assert.Equal(t, []int{2}, q.PopBatch(nil, 5))
}

func TestBoundedPushBlocksWhileFull(t *testing.T) {
	t.Parallel()

	q := New[int](2)
	require.Equal(t, 2, q.Cap())
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(3) }()

	select {
	case <-pushed:
		t.Fatal("Push returned on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, []int{1}, q.PopBatch(nil, 1))
	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Push did not wake after a pop freed room")
	}
	assert.Equal(t, []int{2, 3}, q.PopBatch(nil, 5))
}

func TestBoundedPushUnblocksOnDone(t *testing.T) {
	t.Parallel()

	q := New[int](1)
	require.NoError(t, q.Push(1))
	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(2) }()
	time.Sleep(20 * time.Millisecond)
	q.SetDone()

	select {
	case err := <-pushed:
		assert.ErrorIs(t, err, ErrDone)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Push not released by SetDone")
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, 8} {
		q := New[int](capacity)
		const producers, perProducer, consumers = 4, 1000, 3

		var prodWG sync.WaitGroup
		for p := 0; p < producers; p++ {
			prodWG.Add(1)
			go func(base int) {
				defer prodWG.Done()
				for i := 0; i < perProducer; i++ {
					assert.NoError(t, q.Push(base+i))
				}
			}(p * perProducer)
		}

		var mu sync.Mutex
		var seen []int
		var consWG sync.WaitGroup
		for c := 0; c < consumers; c++ {
			consWG.Add(1)
			go func() {
				defer consWG.Done()
				var batch []int
				for {
					batch = q.PopBatch(batch, 16)
					if len(batch) == 0 {
						return
					}
					mu.Lock()
					seen = append(seen, batch...)
					mu.Unlock()
				}
			}()
		}

		prodWG.Wait()
		q.SetDone()
		consWG.Wait()

		require.Len(t, seen, producers*perProducer)
		sort.Ints(seen)
		for i, v := range seen {
			require.Equal(t, i, v)
		}
	}
}
