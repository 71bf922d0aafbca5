/*
Package dedup keeps track of output records already emitted for the current input file.

A Set is the shared source of truth, sharded by xxh3 so concurrent workers rarely contend on
the same mutex. A Local sits in front of it inside each worker and short-circuits strings that
worker has already offered.
*/
package dedup

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
	"sync"

	"github.com/zeebo/xxh3"
)

// DefaultShards is the shard count used when NewSet is given a non-positive value.
const DefaultShards = 16

// shard pads its mutex and map out to their own cache line.
type shard struct {
	mu   sync.Mutex
	seen map[string]struct{}
	_    [48]byte
}

// Set is a concurrency-safe set of strings. The zero value is not usable; call NewSet.
type Set struct {
	shards []shard
}

// NewSet returns an empty set with n shards. One shard degenerates to a single mutex.
func NewSet(n int) *Set {
	if n <= 0 {
		n = DefaultShards
	}
	s := &Set{shards: make([]shard, n)}
	for i := range s.shards {
		s.shards[i].seen = make(map[string]struct{})
	}
	return s
}

func (s *Set) shardFor(key string) *shard {
	if len(s.shards) == 1 {
		return &s.shards[0]
	}
	return &s.shards[xxh3.HashString(key)%uint64(len(s.shards))]
}

// Insert adds key and reports whether it was absent. Exactly one of any number of concurrent
// Insert calls for the same key returns true.
func (s *Set) Insert(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.seen[key]; ok {
		return false
	}
	sh.seen[key] = struct{}{}
	return true
}

// Contains reports whether key has been inserted.
func (s *Set) Contains(key string) bool {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.seen[key]
	return ok
}

// Reset empties every shard. It must not race with Insert; the pipeline calls it between files
// when no worker is running.
func (s *Set) Reset() {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		clear(sh.seen)
		sh.mu.Unlock()
	}
}

// Len returns the number of distinct keys across all shards.
func (s *Set) Len() int {
	total := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		total += len(sh.seen)
		sh.mu.Unlock()
	}
	return total
}

// Shards returns the shard count.
func (s *Set) Shards() int { return len(s.shards) }

// Local is a single worker's view of the shared set. It is not safe for concurrent use.
type Local struct {
	global  *Set
	offered map[string]struct{}
}

// NewLocal returns a worker-private filter in front of global.
func NewLocal(global *Set) *Local {
	return &Local{global: global, offered: make(map[string]struct{})}
}

// Admit reports whether key should be emitted: false when this worker already offered it or
// another worker won the insertion into the shared set.
func (l *Local) Admit(key string) bool {
	if _, ok := l.offered[key]; ok {
		return false
	}
	l.offered[key] = struct{}{}
	return l.global.Insert(key)
}
