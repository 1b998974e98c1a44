package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDLocks_SerializesSameID(t *testing.T) {
	locks := newIDLocks()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("doc-1")
			defer locks.Unlock("doc-1")

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
	assert.Empty(t, locks.held)
}

func TestIDLocks_DistinctIDsDoNotBlock(t *testing.T) {
	locks := newIDLocks()
	locks.Lock("doc-a")

	done := make(chan struct{})
	go func() {
		locks.Lock("doc-b")
		locks.Unlock("doc-b")
		close(done)
	}()
	<-done

	locks.Unlock("doc-a")
	assert.Empty(t, locks.held)
}
