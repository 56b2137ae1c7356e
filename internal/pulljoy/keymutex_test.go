package pulljoy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := newKeyMutex()

	const workers = 50
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := km.Lock("testman/repo#1")
			defer unlock()

			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestKeyMutexDistinctKeysDoNotBlock(t *testing.T) {
	km := newKeyMutex()

	unlockA := km.Lock("a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("b")
		unlockB()
		close(done)
	}()

	<-done
	unlockA()
}

func TestKeyMutexRemovesUnusedEntries(t *testing.T) {
	km := newKeyMutex()

	unlock := km.Lock("a")
	unlock()

	km.lock.Lock()
	defer km.lock.Unlock()
	require.Empty(t, km.entries)
}
