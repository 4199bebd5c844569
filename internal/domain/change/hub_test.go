package change

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}) bool {
	select {
	case _, ok := <-ch:
		return ok
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

func TestHub_PublishReachesOnlyMatchingKey(t *testing.T) {
	hub := NewHub[Key]()
	k1 := Key{Table: TableTenants, TenantID: "t1"}
	k2 := Key{Table: TableTenants, TenantID: "t2"}

	unsub1, ch1 := hub.Subscribe(k1)
	defer unsub1()
	unsub2, ch2 := hub.Subscribe(k2)
	defer unsub2()

	hub.Publish(k1)

	assert.True(t, received(ch1))
	select {
	case <-ch2:
		t.Fatal("unexpected signal for other tenant")
	default:
	}
}

func TestHub_Coalesces(t *testing.T) {
	hub := NewHub[string]()
	unsub, ch := hub.Subscribe("u1")
	defer unsub()

	for range 5 {
		hub.Publish("u1")
	}
	assert.True(t, received(ch))
	select {
	case <-ch:
		t.Fatal("bursts should collapse into one signal")
	default:
	}
}

func TestHub_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub[string]()
	unsub, ch := hub.Subscribe("u1")
	assert.Equal(t, 1, hub.Subscribers("u1"))

	hub.Publish("u1")
	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("u1"))
}

func TestHub_StopAll(t *testing.T) {
	hub := NewHub[string]()
	_, ch := hub.Subscribe("u1")
	hub.StopAll()

	_, ok := <-ch
	assert.False(t, ok)

	_, late := hub.Subscribe("u2")
	_, ok = <-late
	assert.False(t, ok)
}

func TestEvent_Key(t *testing.T) {
	ev := Event{Table: TableWorkOrders, TenantID: "t9"}
	assert.Equal(t, Key{Table: TableWorkOrders, TenantID: "t9"}, ev.Key())
}

type scriptedSource struct {
	calls  atomic.Int32
	events []Event
	err    error
}

func (s *scriptedSource) Listen(ctx context.Context, deliver func(Event)) error {
	if s.calls.Add(1) == 1 {
		return s.err
	}
	for _, ev := range s.events {
		deliver(ev)
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestNewPumpRequiresSource(t *testing.T) {
	p, err := NewPump(PumpOptions{Hub: NewHub[Key]()})
	require.ErrorIs(t, err, ErrSourceRequired)
	assert.Nil(t, p)

	_, err = NewPump(PumpOptions{Source: &scriptedSource{}})
	require.Error(t, err)
}

func TestPump_ReconnectsAndDelivers(t *testing.T) {
	key := Key{Table: TableTenants, TenantID: "t1"}
	src := &scriptedSource{
		err:    errors.New("connection reset"),
		events: []Event{{Table: TableTenants, TenantID: "t1"}},
	}
	hub := NewHub[Key]()
	unsub, ch := hub.Subscribe(key)
	defer unsub()

	var errs, seen atomic.Int32
	pump, err := NewPump(PumpOptions{
		Source:  src,
		Hub:     hub,
		Backoff: 10 * time.Millisecond,
		OnError: func(error) { errs.Add(1) },
		OnEvent: func(Event) { seen.Add(1) },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx) }()

	assert.True(t, received(ch))
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}
	assert.Equal(t, int32(1), errs.Load())
	assert.Equal(t, int32(1), seen.Load())
}
