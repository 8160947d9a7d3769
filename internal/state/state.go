// Package state models the progress of an asynchronous operation.
package state

import "github.com/stage-app/engine/internal/live"

// Kind is where an operation stands.
type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// State is Idle, Loading, Success with a Value, or Error with a Message.
type State[T any] struct {
	Kind    Kind   `json:"kind"`
	Value   T      `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

func Idle[T any]() State[T]              { return State[T]{Kind: KindIdle} }
func Loading[T any]() State[T]           { return State[T]{Kind: KindLoading} }
func Success[T any](v T) State[T]        { return State[T]{Kind: KindSuccess, Value: v} }
func Failure[T any](msg string) State[T] { return State[T]{Kind: KindError, Message: msg} }

func (s State[T]) IsIdle() bool    { return s.Kind == KindIdle }
func (s State[T]) IsLoading() bool { return s.Kind == KindLoading }
func (s State[T]) IsSuccess() bool { return s.Kind == KindSuccess }
func (s State[T]) IsError() bool   { return s.Kind == KindError }

// Holder is an observable State.
type Holder[T any] struct {
	subject *live.Subject[State[T]]
}

// NewHolder starts in initial.
func NewHolder[T any](initial State[T]) *Holder[T] {
	return &Holder[T]{subject: live.NewSubjectWith(initial)}
}

func (h *Holder[T]) Set(s State[T])    { h.subject.Set(s) }
func (h *Holder[T]) Current() State[T] { return h.subject.Value() }

// Reset returns to Idle.
func (h *Holder[T]) Reset() { h.subject.Set(Idle[T]()) }

// Subscribe starts with the current state.
func (h *Holder[T]) Subscribe() *live.Subscription[State[T]] { return h.subject.Subscribe() }

// Close ends every subscription.
func (h *Holder[T]) Close() { h.subject.Close() }
