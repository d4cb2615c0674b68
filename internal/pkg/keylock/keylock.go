package keylock

import (
	"sort"
	"sync"
)

// KeyedMutex serializes critical sections per string key.
// Queue issuance and call-next lock "queue:<date>", stock mutations lock
// "medicine:<id>". Entries are removed once the last holder releases, so the
// map stays bounded by the number of keys currently in use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new keyed mutex.
func New() *KeyedMutex {
	return &KeyedMutex{
		locks: map[string]*lockEntry{},
	}
}

// Lock acquires the mutex for key and returns its release function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// LockMany acquires all keys in sorted order so that concurrent callers
// holding overlapping key sets cannot deadlock. Duplicate keys are collapsed.
func (k *KeyedMutex) LockMany(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			uniq = append(uniq, key)
		}
	}
	sort.Strings(uniq)

	releases := make([]func(), 0, len(uniq))
	for _, key := range uniq {
		releases = append(releases, k.Lock(key))
	}

	return func() {
		// Release in reverse acquisition order.
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}
