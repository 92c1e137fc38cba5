package blockstore

import (
	"io"
	"sync"
)

// Locked serializes every call to a Store behind one mutex.
type Locked struct {
	mu    sync.Mutex
	store *Store
}

// NewLocked wraps store. The caller must not use store directly afterwards.
func NewLocked(store *Store) *Locked {
	return &Locked{store: store}
}

func (l *Locked) Insert(key string, value []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.Insert(key, value)
}

func (l *Locked) Get(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Get(key)
}

func (l *Locked) Remove(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Remove(key)
}

// Push holds the lock while r is read.
func (l *Locked) Push(key string, r io.Reader) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Push(key, r)
}

// Pull holds the lock while w is written.
func (l *Locked) Pull(key string, w io.Writer) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Pull(key, w)
}

func (l *Locked) Verify(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Verify(key)
}

func (l *Locked) Check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Check()
}

func (l *Locked) Lookup(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Lookup(key)
}

func (l *Locked) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Keys()
}

func (l *Locked) FreeBlocks() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.FreeBlocks()
}

func (l *Locked) Stats() map[string]interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Stats()
}

// Do runs fn with exclusive access to the store, for callers that need
// several reads to agree with each other.
func (l *Locked) Do(fn func(*Store)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.store)
}
