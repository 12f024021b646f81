// Package lock provides a sharded in-process mutex keyed by an
// unsigned identifier.  The booking engine uses it to serialize
// work per showtime, per screen and per booking without a global
// lock: requests for different keys land in different shards and
// do not block each other (modulo shard collisions, which only
// cost throughput, never correctness).
package lock

import "sync"

// shardCount must be a power of two so the key can be masked.
const shardCount = 64

// KeyedMutex serializes critical sections per uint64 key.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

// NewKeyedMutex returns a ready-to-use KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard owning the key.  The caller must release
// it with Unlock using the same key.
func (m *KeyedMutex) Lock(key uint64) {
	m.shards[key&(shardCount-1)].Lock()
}

// Unlock releases the shard owning the key.
func (m *KeyedMutex) Unlock(key uint64) {
	m.shards[key&(shardCount-1)].Unlock()
}
