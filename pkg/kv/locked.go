package kv

import "sync"

// Engine is the operation set shared by Store and its wrappers.
type Engine interface {
	Put(key string, val []byte) error
	PutIfAbsent(key string, val []byte) error
	Set(key string, val []byte) error
	Get(key string) ([]byte, error)
	Peek(key string) ([]byte, error)
	Delete(key string) error
	Contains(key string) bool
	Keys() []string
	Len() int
	Used() int
	Capacity() int
}

var (
	_ Engine = (*Store)(nil)
	_ Engine = (*Locked)(nil)
)

// Locked serializes every call on a Store behind one mutex. Reads take the
// same lock as writes since Get moves the entry.
type Locked struct {
	mu sync.Mutex
	s  *Store
}

func NewLocked(s *Store) *Locked {
	return &Locked{s: s}
}

func (l *Locked) Put(key string, val []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Put(key, val)
}

func (l *Locked) PutIfAbsent(key string, val []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.PutIfAbsent(key, val)
}

func (l *Locked) Set(key string, val []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Set(key, val)
}

func (l *Locked) Get(key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Get(key)
}

func (l *Locked) Peek(key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Peek(key)
}

func (l *Locked) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Delete(key)
}

func (l *Locked) Contains(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Contains(key)
}

func (l *Locked) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Keys()
}

func (l *Locked) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Len()
}

func (l *Locked) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s.Used()
}

// Capacity is fixed at construction and needs no lock.
func (l *Locked) Capacity() int {
	return l.s.Capacity()
}

func (l *Locked) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.s.Clear()
}
