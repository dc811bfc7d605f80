package telemetry

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Keys exchanged with the robot controller.
const (
	KeyHeading     = "heading"
	KeyTargetAngle = "target_angle"
	KeyTargetFound = "target_found"
)

// Table is the read/write view of the telemetry channel used by the pipeline.
type Table interface {
	GetNumber(key string, def float64) float64
	PutNumber(key string, v float64)
	GetBoolean(key string, def bool) bool
	PutBoolean(key string, v bool)
}

// Value is one entry of the table, and also the wire form of an update.
// Exactly one of Number and Bool is set.
type Value struct {
	Key    string   `json:"key"`
	Number *float64 `json:"number,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
}

// NumberValue builds a numeric Value.
func NumberValue(key string, v float64) Value {
	return Value{Key: key, Number: &v}
}

// BoolValue builds a boolean Value.
func BoolValue(key string, v bool) Value {
	return Value{Key: key, Bool: &v}
}

// Valid reports whether v has a key and exactly one payload.
func (v Value) Valid() bool {
	return v.Key != "" && (v.Number == nil) != (v.Bool == nil)
}

func (v Value) equal(o Value) bool {
	switch {
	case v.Number != nil && o.Number != nil:
		return *v.Number == *o.Number
	case v.Bool != nil && o.Bool != nil:
		return *v.Bool == *o.Bool
	}
	return false
}

// subscriberBuffer is the per-subscriber queue length; updates beyond it
// are dropped for that subscriber.
const subscriberBuffer = 64

// MemoryTable is an in-process Table that fans changes out to subscribers.
type MemoryTable struct {
	mu     sync.RWMutex
	values map[string]Value

	subscriberMu sync.Mutex
	subscribers  map[string]chan Value
}

// NewMemoryTable creates an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{
		values:      make(map[string]Value),
		subscribers: make(map[string]chan Value),
	}
}

// GetNumber returns the number stored at key, or def.
func (t *MemoryTable) GetNumber(key string, def float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.values[key]; ok && v.Number != nil {
		return *v.Number
	}
	return def
}

// GetBoolean returns the boolean stored at key, or def.
func (t *MemoryTable) GetBoolean(key string, def bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if v, ok := t.values[key]; ok && v.Bool != nil {
		return *v.Bool
	}
	return def
}

// PutNumber stores a number.
func (t *MemoryTable) PutNumber(key string, v float64) {
	t.apply(NumberValue(key, v), "")
}

// PutBoolean stores a boolean.
func (t *MemoryTable) PutBoolean(key string, v bool) {
	t.apply(BoolValue(key, v), "")
}

// Set stores v on behalf of the subscriber source, which is not notified.
// Invalid values are ignored and reported as false.
func (t *MemoryTable) Set(v Value, source string) bool {
	if !v.Valid() {
		return false
	}
	t.apply(v, source)
	return true
}

func (t *MemoryTable) apply(v Value, source string) {
	t.mu.Lock()
	old, ok := t.values[v.Key]
	t.values[v.Key] = v
	t.mu.Unlock()

	if ok && old.equal(v) {
		return
	}

	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	for id, ch := range t.subscribers {
		if id == source {
			continue
		}
		select {
		case ch <- v:
		default:
			// slow subscriber; it will catch up from a later snapshot
		}
	}
}

// Snapshot returns every value, sorted by key.
func (t *MemoryTable) Snapshot() []Value {
	t.mu.RLock()
	out := make([]Value, 0, len(t.values))
	for _, v := range t.values {
		out = append(out, v)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Subscribe returns an ID and a channel receiving every subsequent change.
func (t *MemoryTable) Subscribe() (string, chan Value) {
	id := uuid.NewString()
	ch := make(chan Value, subscriberBuffer)
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	t.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (t *MemoryTable) Unsubscribe(id string) {
	t.subscriberMu.Lock()
	defer t.subscriberMu.Unlock()
	if ch, ok := t.subscribers[id]; ok {
		close(ch)
		delete(t.subscribers, id)
	}
}
