package locker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	k := NewKeyed()

	var mu sync.Mutex
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("chat-1")
			defer unlock()
			mu.Lock()
			counter++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestKeyed_IndependentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	<-done // key b proceeds while a is held
	unlockA()
}

func TestKeyed_DropsIdleEntries(t *testing.T) {
	k := NewKeyed()
	unlock := k.Lock("x")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
