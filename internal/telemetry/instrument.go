package telemetry

import (
	"time"

	"github.com/ryandielhenn/bytelru/pkg/kv"
)

type instrumented struct {
	next kv.Engine
}

// Instrument wraps an engine to record metrics for every keyed operation.
// Size queries pass through untimed.
// Example:
//
//	store := telemetry.Instrument(kv.NewLocked(s))
func Instrument(next kv.Engine) kv.Engine {
	return &instrumented{next: next}
}

func (i *instrumented) Put(key string, val []byte) error {
	start := time.Now()
	err := i.next.Put(key, val)
	observe("put", start, err)
	return err
}

func (i *instrumented) PutIfAbsent(key string, val []byte) error {
	start := time.Now()
	err := i.next.PutIfAbsent(key, val)
	observe("put_if_absent", start, err)
	return err
}

func (i *instrumented) Set(key string, val []byte) error {
	start := time.Now()
	err := i.next.Set(key, val)
	observe("set", start, err)
	return err
}

func (i *instrumented) Get(key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Get(key)
	observe("get", start, err)
	return v, err
}

func (i *instrumented) Peek(key string) ([]byte, error) {
	start := time.Now()
	v, err := i.next.Peek(key)
	observe("peek", start, err)
	return v, err
}

func (i *instrumented) Delete(key string) error {
	start := time.Now()
	err := i.next.Delete(key)
	observe("delete", start, err)
	return err
}

func (i *instrumented) Contains(key string) bool { return i.next.Contains(key) }
func (i *instrumented) Keys() []string           { return i.next.Keys() }
func (i *instrumented) Len() int                 { return i.next.Len() }
func (i *instrumented) Used() int                { return i.next.Used() }
func (i *instrumented) Capacity() int            { return i.next.Capacity() }
