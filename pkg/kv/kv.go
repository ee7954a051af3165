package kv

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("kv: key not found")
	ErrAlreadyExists    = errors.New("kv: key already exists")
	ErrCapacityExceeded = errors.New("kv: entry exceeds store capacity")
	ErrInvalidCapacity  = errors.New("kv: capacity must not be negative")
)

// nilHandle marks the absence of a neighbour or an empty end of the list.
const nilHandle = -1

type entry struct {
	key   string
	value []byte
	prev  int // less recently used
	next  int // more recently used
}

func (e *entry) cost() int { return len(e.key) + len(e.value) }

// Store is an in-memory KV with LRU eviction by bytes capacity.
//
// Entries live in an arena and are linked by index, head being the least
// recently used and tail the most recently used. A Store is not safe for
// concurrent use; wrap it with NewLocked for that.
type Store struct {
	entries []entry
	free    []int
	data    map[string]int
	head    int
	tail    int
	used    int
	cap     int
	onEvict func(key string, value []byte)
}

func NewStore(capacityBytes int) (*Store, error) {
	if capacityBytes < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacityBytes)
	}
	return &Store{
		data: make(map[string]int),
		head: nilHandle,
		tail: nilHandle,
		cap:  capacityBytes,
	}, nil
}

// MustNewStore is like NewStore but panics on a negative capacity.
func MustNewStore(capacityBytes int) *Store {
	s, err := NewStore(capacityBytes)
	if err != nil {
		panic(err)
	}
	return s
}

// OnEvict registers f to be called for every entry dropped to make room for
// a write. It runs synchronously and must not call back into the store.
func (s *Store) OnEvict(f func(key string, value []byte)) {
	s.onEvict = f
}

// Put inserts key or overwrites its value.
func (s *Store) Put(key string, val []byte) error {
	if h, ok := s.data[key]; ok {
		return s.update(h, val)
	}
	return s.insert(key, val)
}

// PutIfAbsent inserts key only when it is not already stored.
func (s *Store) PutIfAbsent(key string, val []byte) error {
	if _, ok := s.data[key]; ok {
		return ErrAlreadyExists
	}
	return s.insert(key, val)
}

// Set replaces the value of an existing key.
func (s *Store) Set(key string, val []byte) error {
	h, ok := s.data[key]
	if !ok {
		return ErrNotFound
	}
	return s.update(h, val)
}

// Get returns a copy of the value and marks key as most recently used.
func (s *Store) Get(key string) ([]byte, error) {
	h, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(h)
	return append([]byte(nil), s.entries[h].value...), nil
}

// Peek returns a copy of the value without changing recency.
func (s *Store) Peek(key string) ([]byte, error) {
	h, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), s.entries[h].value...), nil
}

func (s *Store) Delete(key string) error {
	h, ok := s.data[key]
	if !ok {
		return ErrNotFound
	}
	s.remove(h)
	return nil
}

func (s *Store) Contains(key string) bool {
	_, ok := s.data[key]
	return ok
}

func (s *Store) Len() int       { return len(s.data) }
func (s *Store) Used() int      { return s.used }
func (s *Store) Capacity() int  { return s.cap }
func (s *Store) Remaining() int { return s.cap - s.used }

// Keys returns the stored keys from most to least recently used.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for h := s.tail; h != nilHandle; h = s.entries[h].prev {
		keys = append(keys, s.entries[h].key)
	}
	return keys
}

// Clear drops every entry without reporting evictions.
func (s *Store) Clear() {
	clear(s.entries)
	s.entries = s.entries[:0]
	s.free = s.free[:0]
	clear(s.data)
	s.head, s.tail = nilHandle, nilHandle
	s.used = 0
}

func (s *Store) insert(key string, val []byte) error {
	need := len(key) + len(val)
	if need > s.cap {
		return fmt.Errorf("%w: need %d bytes, capacity %d", ErrCapacityExceeded, need, s.cap)
	}
	s.evictFor(need, nilHandle)

	h := s.alloc()
	s.entries[h] = entry{
		key:   key,
		value: append([]byte(nil), val...),
		prev:  nilHandle,
		next:  nilHandle,
	}
	s.pushBack(h)
	s.data[key] = h
	s.used += need
	return nil
}

func (s *Store) update(h int, val []byte) error {
	e := &s.entries[h]
	oldCost := e.cost()
	newCost := len(e.key) + len(val)
	if newCost > s.cap {
		return fmt.Errorf("%w: need %d bytes, capacity %d", ErrCapacityExceeded, newCost, s.cap)
	}
	if delta := newCost - oldCost; delta > 0 {
		s.evictFor(delta, h)
	}
	e.value = append([]byte(nil), val...)
	s.used += newCost - oldCost
	s.touch(h)
	return nil
}

// evictFor drops entries from the LRU end until need bytes are free. keep is
// never evicted; the caller has already checked that need fits once every
// other entry is gone.
func (s *Store) evictFor(need, keep int) {
	for s.cap-s.used < need {
		victim := s.head
		if victim == keep {
			victim = s.entries[victim].next
		}
		if victim == nilHandle {
			panic("kv: eviction ran out of entries with budget still short")
		}
		e := s.entries[victim]
		s.remove(victim)
		if s.onEvict != nil {
			s.onEvict(e.key, e.value)
		}
	}
}

func (s *Store) alloc() int {
	if n := len(s.free); n > 0 {
		h := s.free[n-1]
		s.free = s.free[:n-1]
		return h
	}
	s.entries = append(s.entries, entry{})
	return len(s.entries) - 1
}

func (s *Store) remove(h int) {
	e := &s.entries[h]
	delete(s.data, e.key)
	s.used -= e.cost()
	s.unlink(h)
	*e = entry{prev: nilHandle, next: nilHandle}
	s.free = append(s.free, h)
}

func (s *Store) touch(h int) {
	if h == s.tail {
		return
	}
	s.unlink(h)
	s.pushBack(h)
}

func (s *Store) unlink(h int) {
	e := &s.entries[h]
	if e.prev != nilHandle {
		s.entries[e.prev].next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nilHandle {
		s.entries[e.next].prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nilHandle, nilHandle
}

func (s *Store) pushBack(h int) {
	e := &s.entries[h]
	e.prev = s.tail
	e.next = nilHandle
	if s.tail != nilHandle {
		s.entries[s.tail].next = h
	} else {
		s.head = h
	}
	s.tail = h
}
