package live

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestSubjectReplaysLatest(t *testing.T) {
	s := NewSubjectWith(1)
	s.Set(2)

	sub := s.Subscribe()
	defer sub.Close()
	require.Equal(t, 2, receive(t, sub.C()))

	s.Set(3)
	require.Equal(t, 3, receive(t, sub.C()))
}

func TestSubjectConflatesSlowSubscriber(t *testing.T) {
	s := NewSubject[int]()
	sub := s.Subscribe()
	defer sub.Close()

	for i := 1; i <= 10; i++ {
		s.Set(i)
	}
	require.Equal(t, 10, receive(t, sub.C()))
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestSubjectClose(t *testing.T) {
	s := NewSubject[string]()
	sub := s.Subscribe()
	s.Close()

	_, ok := <-sub.C()
	require.False(t, ok)

	late := s.Subscribe()
	_, ok = <-late.C()
	require.False(t, ok)

	s.Set("ignored")
	sub.Close()
}

func TestSubjectUpdate(t *testing.T) {
	s := NewSubjectWith(1)
	s.Update(func(v int) int { return v + 1 })
	require.Equal(t, 2, s.Value())
}

func TestNotifierWatch(t *testing.T) {
	n := NewNotifier()
	ch, cancel := n.Watch("posts", "car_details")
	require.Equal(t, 1, n.Watchers("posts"))

	n.Publish("users")
	select {
	case <-ch:
		t.Fatal("signal for unrelated table")
	default:
	}

	n.Publish("car_details")
	n.Publish("posts")
	receive(t, ch)

	cancel()
	cancel()
	require.Zero(t, n.Watchers("posts"))
	require.Zero(t, n.Watchers("car_details"))
}

func TestStreamRefetchesOnChange(t *testing.T) {
	n := NewNotifier()
	var calls atomic.Int32
	s := Watch(context.Background(), n, func(context.Context) (int32, error) {
		return calls.Add(1), nil
	}, "posts")
	defer s.Close()

	sub := s.Subscribe()
	defer sub.Close()
	require.Equal(t, Result[int32]{Value: 1}, receive(t, sub.C()))

	n.Publish("posts")
	require.Equal(t, int32(2), receive(t, sub.C()).Value)

	s.Refresh()
	require.Equal(t, int32(3), receive(t, sub.C()).Value)
}

func TestStreamCarriesErrors(t *testing.T) {
	boom := errors.New("boom")
	s := Watch(context.Background(), NewNotifier(), func(context.Context) (int, error) {
		return 0, boom
	}, "posts")
	defer s.Close()

	sub := s.Subscribe()
	defer sub.Close()
	require.ErrorIs(t, receive(t, sub.C()).Err, boom)
}

func TestStreamStopsWithContext(t *testing.T) {
	n := NewNotifier()
	ctx, cancel := context.WithCancel(context.Background())
	s := Watch(ctx, n, func(context.Context) (int, error) { return 1, nil }, "posts")
	sub := s.Subscribe()
	receive(t, sub.C())

	cancel()
	s.Close()
	_, ok := <-sub.C()
	require.False(t, ok)
	require.Zero(t, n.Watchers("posts"))
}
