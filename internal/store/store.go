// Package store holds the client-side snapshots of server state. Every action replaces its slot
// with what the server returned; failures land in a last-error-wins slot instead of propagating.
package store

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"trading_terminal/internal/api"
)

// Failure is the last action error a store recorded.
type Failure struct {
	Kind    api.Kind
	Message string
}

func (f *Failure) Error() string { return f.Message }

// state is the loading counter and error slot shared by all actions of one store.
type state struct {
	smu      sync.RWMutex
	inflight int
	failure  *Failure
	log      *zap.SugaredLogger
}

// begin marks an action as running and clears the previous error. Call the returned func when done.
func (s *state) begin() func() {
	s.smu.Lock()
	s.inflight++
	s.failure = nil
	s.smu.Unlock()
	return func() {
		s.smu.Lock()
		s.inflight--
		s.smu.Unlock()
	}
}

// fail records err in the error slot, overwriting whatever was there.
func (s *state) fail(op, fallback string, err error) {
	f := &Failure{Kind: api.KindOf(err), Message: messageOf(err, fallback)}
	s.smu.Lock()
	s.failure = f
	s.smu.Unlock()
	s.log.Warnw(op+" failed", "kind", f.Kind.String(), "message", f.Message, "error", err)
}

// Loading reports whether any action of the store is in flight.
func (s *state) Loading() bool {
	s.smu.RLock()
	defer s.smu.RUnlock()
	return s.inflight > 0
}

// Err returns the last recorded failure, or nil.
func (s *state) Err() *Failure {
	s.smu.RLock()
	defer s.smu.RUnlock()
	if s.failure == nil {
		return nil
	}
	f := *s.failure
	return &f
}

// ClearErr empties the error slot.
func (s *state) ClearErr() {
	s.smu.Lock()
	s.failure = nil
	s.smu.Unlock()
}

// messageOf picks what the user sees: the server's message, then the transport error, then fallback.
func messageOf(err error, fallback string) string {
	if m := api.ServerMessage(err); m != "" {
		return m
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Err != nil {
			return apiErr.Err.Error()
		}
		return fallback
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
