// Package queue provides the FIFO hand-off between the file producer, the filter workers and
// the output writer.
package queue

/*
ulpfilter — fast filter for url:login:pass credential lists in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"errors"
	"sync"
)

// ErrDone is returned by Push once the queue has been marked done.
var ErrDone = errors.New("queue is done")

// Queue is a multi-producer, multi-consumer FIFO. Capacity 0 means unbounded.
type Queue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    []T
	head     int
	capacity int
	done     bool
}

// New returns an empty queue. With capacity > 0, Push blocks while the queue holds that many
// items.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	q := &Queue[T]{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

func (q *Queue[T]) size() int { return len(q.items) - q.head }

// Push appends item and wakes one waiting consumer. It returns ErrDone if the queue was marked
// done before or while waiting for room.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.capacity > 0 && q.size() >= q.capacity && !q.done {
		q.notFull.Wait()
	}
	if q.done {
		return ErrDone
	}
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// PopBatch blocks until at least one item is available or the queue is done, then moves up to
// max items into batch (reusing its backing array) and returns it. An empty result means the
// queue is done and drained.
func (q *Queue[T]) PopBatch(batch []T, max int) []T {
	batch = batch[:0]
	if max <= 0 {
		max = 1
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.size() == 0 && !q.done {
		q.notEmpty.Wait()
	}
	n := q.size()
	if n > max {
		n = max
	}
	var zero T
	for i := 0; i < n; i++ {
		batch = append(batch, q.items[q.head])
		q.items[q.head] = zero
		q.head++
	}
	q.compact()
	if n > 0 && q.capacity > 0 {
		q.notFull.Broadcast()
	}
	return batch
}

// compact releases the consumed prefix once it dominates the backing array.
func (q *Queue[T]) compact() {
	if q.head == 0 {
		return
	}
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head > len(q.items)/2 {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
}

// SetDone moves the queue to its terminal state and wakes every waiter. Remaining items can
// still be popped.
func (q *Queue[T]) SetDone() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Clear drops pending items and resets the done flag so the queue can serve the next file.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	q.done = false
	q.mu.Unlock()
	q.notFull.Broadcast()
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size()
}

// Cap returns the configured capacity; 0 means unbounded.
func (q *Queue[T]) Cap() int { return q.capacity }

// Done reports whether SetDone has been called since the last Clear.
func (q *Queue[T]) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}
