// Package nettable implements the key/value channel the robot reads commands from and writes
// telemetry to, along with its typed store.
package nettable

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/sysid/logging"
)

var (
	// ErrChannelUnavailable is returned once the channel has been closed.
	ErrChannelUnavailable = errors.New("channel unavailable")
	// ErrTypeMismatch is returned when an entry holds a different type than requested.
	ErrTypeMismatch = errors.New("entry type mismatch")
)

// DefaultSubscriberBuffer holds a few seconds of 10ms updates.
const DefaultSubscriberBuffer = 1024

// A Table is the robot's view of the channel. Reads of missing entries return the default.
type Table interface {
	Number(key string, def float64) (float64, error)
	Boolean(key string, def bool) (bool, error)
	String(key string, def string) (string, error)
	SetNumber(key string, v float64) error
	SetBoolean(key string, v bool) error
	SetString(key string, v string) error
	// SetNumberArray writes the whole array as one update.
	SetNumberArray(key string, v []float64) error
}

var _ Table = &Store{}

type subscription struct {
	ch      chan Update
	dropped atomic.Uint64
}

// A Store is an in-process Table. Every write is fanned out, in order, to every subscriber.
type Store struct {
	logger logging.Logger

	mu      sync.Mutex
	entries map[string]Value
	seq     uint64
	subs    map[*subscription]struct{}
	closed  bool

	dropped atomic.Uint64
}

// NewStore returns an empty store.
func NewStore(logger logging.Logger) *Store {
	return &Store{
		logger:  logger,
		entries: map[string]Value{},
		subs:    map[*subscription]struct{}{},
	}
}

// Get returns the entry for key and whether it exists.
func (s *Store) Get(key string) (Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Value{}, false, ErrChannelUnavailable
	}
	v, ok := s.entries[key]
	if ok && v.Type == TypeNumberArray {
		v = NumberArrayValue(v.NumberArray)
	}
	return v, ok, nil
}

func (s *Store) get(key string, vt ValueType) (Value, bool, error) {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return Value{}, false, err
	}
	if v.Type != vt {
		return Value{}, false, errors.Wrapf(ErrTypeMismatch, "%q is a %s, not a %s", key, v.Type, vt)
	}
	return v, true, nil
}

// Number returns the number at key, or def.
func (s *Store) Number(key string, def float64) (float64, error) {
	v, ok, err := s.get(key, TypeNumber)
	if err != nil || !ok {
		return def, err
	}
	return v.Number, nil
}

// Boolean returns the boolean at key, or def.
func (s *Store) Boolean(key string, def bool) (bool, error) {
	v, ok, err := s.get(key, TypeBoolean)
	if err != nil || !ok {
		return def, err
	}
	return v.Boolean, nil
}

// String returns the string at key, or def.
func (s *Store) String(key, def string) (string, error) {
	v, ok, err := s.get(key, TypeString)
	if err != nil || !ok {
		return def, err
	}
	return v.String, nil
}

// NumberArray returns a copy of the array at key, or def.
func (s *Store) NumberArray(key string, def []float64) ([]float64, error) {
	v, ok, err := s.get(key, TypeNumberArray)
	if err != nil || !ok {
		return def, err
	}
	return v.NumberArray, nil
}

// SetNumber sets a number entry.
func (s *Store) SetNumber(key string, v float64) error {
	return s.Set(key, NumberValue(v))
}

// SetBoolean sets a boolean entry.
func (s *Store) SetBoolean(key string, v bool) error {
	return s.Set(key, BooleanValue(v))
}

// SetString sets a string entry.
func (s *Store) SetString(key, v string) error {
	return s.Set(key, StringValue(v))
}

// SetNumberArray sets an array entry from a copy of v.
func (s *Store) SetNumberArray(key string, v []float64) error {
	return s.Set(key, NumberArrayValue(v))
}

// Set writes an entry. An entry keeps the type of its first write.
func (s *Store) Set(key string, v Value) error {
	if key == "" {
		return errors.New("empty key")
	}
	if v.Type == TypeNumberArray {
		v = NumberArrayValue(v.NumberArray)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrChannelUnavailable
	}
	if old, ok := s.entries[key]; ok && old.Type != v.Type {
		return errors.Wrapf(ErrTypeMismatch, "%q is a %s, cannot set a %s", key, old.Type, v.Type)
	}
	s.entries[key] = v
	s.seq++
	u := Update{Key: key, Value: v, Seq: s.seq}
	for sub := range s.subs {
		select {
		case sub.ch <- u:
		default:
			sub.dropped.Inc()
			s.dropped.Inc()
		}
	}
	return nil
}

// Snapshot returns the current entries as updates sorted by key.
func (s *Store) Snapshot() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() []Update {
	out := make([]Update, 0, len(s.entries))
	for key, v := range s.entries {
		if v.Type == TypeNumberArray {
			v = NumberArrayValue(v.NumberArray)
		}
		out = append(out, Update{Key: key, Value: v, Seq: s.seq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Subscribe returns the current entries and a channel of every later write. The channel
// holds up to buffer updates; updates that do not fit are dropped for this subscriber. The
// returned cancel func must be called to release the subscription.
func (s *Store) Subscribe(buffer int) ([]Update, <-chan Update, func(), error) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	sub := &subscription{ch: make(chan Update, buffer)}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, nil, ErrChannelUnavailable
	}
	s.subs[sub] = struct{}{}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[sub]; ok {
				delete(s.subs, sub)
				close(sub.ch)
			}
			if n := sub.dropped.Load(); n > 0 {
				s.logger.Warnw("subscriber dropped updates", "count", n)
			}
		})
	}
	return s.snapshot(), sub.ch, cancel, nil
}

// Dropped returns how many updates were dropped across all subscribers.
func (s *Store) Dropped() uint64 {
	return s.dropped.Load()
}

// Close makes every later call fail with ErrChannelUnavailable and ends all subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
		delete(s.subs, sub)
	}
	return nil
}
