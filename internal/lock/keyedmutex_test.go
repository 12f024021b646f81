package lock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSameKeySerializes(t *testing.T) {
	m := NewKeyedMutex()
	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			m.Lock(7)
			counter++
			m.Unlock(7)
		}()
	}
	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestDifferentShardsDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	m.Lock(1)
	done := make(chan struct{})
	go func() {
		// key 2 lives in a different shard than key 1
		m.Lock(2)
		m.Unlock(2)
		close(done)
	}()
	<-done
	m.Unlock(1)
}
