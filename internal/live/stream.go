package live

import "context"

// Result is one emission of a live query.
type Result[T any] struct {
	Value T
	Err   error
}

// Stream re-runs a query each time one of its tables changes and publishes
// every result.
type Stream[T any] struct {
	subject *Subject[Result[T]]
	cancel  context.CancelFunc
	done    chan struct{}
	refresh chan struct{}
}

// Watch starts a stream. fetch runs once immediately and again after each
// change to tables, until ctx is done or Close is called.
func Watch[T any](ctx context.Context, n *Notifier, fetch func(context.Context) (T, error), tables ...string) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		subject: NewSubject[Result[T]](),
		cancel:  cancel,
		done:    make(chan struct{}),
		refresh: make(chan struct{}, 1),
	}
	changed, unwatch := n.Watch(tables...)

	go func() {
		defer close(s.done)
		defer s.subject.Close()
		defer unwatch()

		for {
			v, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			s.subject.Set(Result[T]{Value: v, Err: err})

			select {
			case <-ctx.Done():
				return
			case <-changed:
			case <-s.refresh:
			}
		}
	}()
	return s
}

// Subscribe returns a subscription that starts with the latest result.
func (s *Stream[T]) Subscribe() *Subscription[Result[T]] { return s.subject.Subscribe() }

// Current returns the latest result, if any.
func (s *Stream[T]) Current() (Result[T], bool) { return s.subject.Current() }

// Refresh asks for a re-run without a table change.
func (s *Stream[T]) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Close stops the stream and waits for its goroutine.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}
