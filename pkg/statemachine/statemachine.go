package statemachine

import (
	"reflect"
	"sync"
)

// StateFn represents a state function following Rob Pike's pattern: it
// performs the work of the state and returns the next state function.
type StateFn[T any] func(*T) StateFn[T]

// StateMachine is a small thread-safe wrapper around a StateFn chain.
// States may be registered with a name so callers can report and compare
// the current state without poking at function pointers themselves.
type StateMachine[T any] struct {
	entity  *T
	stateFn StateFn[T]
	names   map[uintptr]string
	mutex   sync.RWMutex
}

// NewStateMachine creates a new state machine for the given entity.
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initialStateFn,
		names:   make(map[uintptr]string),
	}
}

// Register associates a display name with a state function.
func (sm *StateMachine[T]) Register(name string, fn StateFn[T]) {
	sm.mutex.Lock()
	sm.names[fnKey(fn)] = name
	sm.mutex.Unlock()
}

// Dispatch sets stateFn as the current state, runs it once and moves to
// whatever state it returns. A nil stateFn leaves the machine terminated.
func (sm *StateMachine[T]) Dispatch(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()

	if stateFn == nil {
		return
	}

	next := stateFn(sm.entity)

	sm.mutex.Lock()
	sm.stateFn = next
	sm.mutex.Unlock()
}

// Step re-runs the current state so it can react to changes in the entity.
func (sm *StateMachine[T]) Step() {
	sm.Dispatch(sm.Current())
}

// Current returns the current state function.
func (sm *StateMachine[T]) Current() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// Is reports whether fn is the current state.
func (sm *StateMachine[T]) Is(fn StateFn[T]) bool {
	cur := sm.Current()
	if cur == nil || fn == nil {
		return cur == nil && fn == nil
	}
	return fnKey(cur) == fnKey(fn)
}

// StateName returns the registered name of the current state, "TERMINATED"
// once the machine has stopped, or "UNKNOWN" for unregistered states.
func (sm *StateMachine[T]) StateName() string {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	if sm.stateFn == nil {
		return "TERMINATED"
	}
	if name, ok := sm.names[fnKey(sm.stateFn)]; ok {
		return name
	}
	return "UNKNOWN"
}

// SetState sets the state function without running it.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()
}

func fnKey[T any](fn StateFn[T]) uintptr {
	return reflect.ValueOf(fn).Pointer()
}
