// Package store is a small redux-style container: state changes only through
// dispatched actions reduced by a pure function, and asynchronous work runs as
// thunks that receive the dispatcher explicitly.
package store

import (
	"context"
	"sync"

	"github.com/nazeru/storefront-checkout-go/pkg/action"
)

type Reducer[S any] func(state S, a action.Action) S

type DispatchFunc func(a action.Action)

// Middleware wraps dispatch. It sees every action before the reducer does.
type Middleware[S any] func(getState func() S, next DispatchFunc) DispatchFunc

// Dispatcher is the context handed to every thunk.
type Dispatcher[S any] interface {
	Dispatch(a action.Action)
	State() S
	// Run executes a nested thunk and waits for it to finish.
	Run(ctx context.Context, t Thunk[S]) error
}

// Thunk is an asynchronous operation that may read state and dispatch actions.
type Thunk[S any] func(ctx context.Context, d Dispatcher[S]) error

type Store[S any] struct {
	mu       sync.RWMutex
	state    S
	reducer  Reducer[S]
	dispatch DispatchFunc

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(action.Action, S)
}

func New[S any](reducer Reducer[S], initial S, middlewares ...Middleware[S]) *Store[S] {
	s := &Store[S]{
		state:   initial,
		reducer: reducer,
		subs:    make(map[int]func(action.Action, S)),
	}
	d := s.reduce
	for i := len(middlewares) - 1; i >= 0; i-- {
		d = middlewares[i](s.State, d)
	}
	s.dispatch = d
	return s
}

func (s *Store[S]) Dispatch(a action.Action) {
	s.dispatch(a)
}

func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store[S]) Run(ctx context.Context, t Thunk[S]) error {
	return t(ctx, s)
}

// Subscribe registers a listener called after every reduced action with the
// resulting state. The returned func removes the listener.
func (s *Store[S]) Subscribe(listener func(a action.Action, state S)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = listener
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store[S]) reduce(a action.Action) {
	s.mu.Lock()
	s.state = s.reducer(s.state, a)
	next := s.state
	s.mu.Unlock()

	s.subMu.Lock()
	listeners := make([]func(action.Action, S), 0, len(s.subs))
	for _, l := range s.subs {
		listeners = append(listeners, l)
	}
	s.subMu.Unlock()

	for _, l := range listeners {
		l(a, next)
	}
}
