package locks

import (
	"hash/fnv"
	"sync"
)

// DefaultShards is the default number of lock shards.
const DefaultShards = 256

// KeyMutex provides mutual exclusion per string key via a fixed pool of
// shard locks. Two different keys only contend when they hash to the same
// shard, so updates to unrelated keys proceed in parallel. A process-wide
// lock would serialize every edge update; this keeps the critical section
// scoped to one canonical key.
type KeyMutex struct {
	shards []sync.Mutex
}

// NewKeyMutex creates a keyed mutex with the given number of shards.
// Values below 1 fall back to DefaultShards.
func NewKeyMutex(shards int) *KeyMutex {
	if shards < 1 {
		shards = DefaultShards
	}
	return &KeyMutex{
		shards: make([]sync.Mutex, shards),
	}
}

// Lock acquires the shard lock for key and returns the unlock function.
// Callers must invoke the returned function exactly once, typically via defer.
func (m *KeyMutex) Lock(key string) func() {
	shard := &m.shards[m.shardFor(key)]
	shard.Lock()
	return shard.Unlock
}

func (m *KeyMutex) shardFor(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % uint32(len(m.shards))
}
