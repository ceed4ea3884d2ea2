package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex(16)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("edge#a#b")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestKeyMutexDifferentKeysDoNotDeadlock(t *testing.T) {
	km := NewKeyMutex(4)

	// Hold one key while acquiring others; with 4 shards some keys collide,
	// but sequential acquire/release must always complete.
	unlockA := km.Lock("a")
	unlockA()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, key := range []string{"b", "c", "d", "e", "f"} {
			unlock := km.Lock(key)
			unlock()
		}
	}()
	<-done
}

func TestKeyMutexShardFloor(t *testing.T) {
	km := NewKeyMutex(0)
	assert.Len(t, km.shards, DefaultShards)
}
