package pulljoy

import "sync"

// keyMutex provides one mutex per string key.
// Mutex entries are reference counted and removed when the last holder
// unlocked, the map does not grow with the number of keys ever seen.
type keyMutex struct {
	lock    sync.Mutex
	entries map[string]*keyMutexEntry
}

type keyMutexEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{
		entries: map[string]*keyMutexEntry{},
	}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyMutex) Lock(key string) func() {
	k.lock.Lock()
	entry, exist := k.entries[key]
	if !exist {
		entry = &keyMutexEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.lock.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		k.lock.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.lock.Unlock()
	}
}
