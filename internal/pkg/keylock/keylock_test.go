package keylock

import (
	"sync"
	"testing"
)

func TestLock_MutualExclusion(t *testing.T) {
	k := New()

	const workers = 50
	const iterations = 100

	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := k.Lock("counter")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("expected counter %d, got %d", workers*iterations, counter)
	}
}

func TestLock_IndependentKeysDoNotBlock(t *testing.T) {
	k := New()

	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()

	<-done // must complete while "a" is still held
	unlockA()
}

func TestLock_EntryRemovedAfterRelease(t *testing.T) {
	k := New()

	unlock := k.Lock("ephemeral")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected lock map to be empty, has %d entries", len(k.locks))
	}
}

func TestLockMany_OverlappingSetsNoDeadlock(t *testing.T) {
	k := New()

	// Two goroutines repeatedly lock overlapping sets presented in opposite
	// order. Sorted acquisition must prevent deadlock.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			unlock := k.LockMany("medicine:1", "medicine:2", "medicine:3")
			unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			unlock := k.LockMany("medicine:3", "medicine:2", "medicine:1")
			unlock()
		}
	}()
	wg.Wait()
}

func TestLockMany_DeduplicatesKeys(t *testing.T) {
	k := New()

	// Would self-deadlock if duplicates were locked twice.
	unlock := k.LockMany("x", "x", "x")
	unlock()
}
