package domain

import (
	"errors"
	"testing"
	"time"

	"mud-server/internal/callout"
	"mud-server/internal/heartbeat"
)

func newSchedulers(t *testing.T) (*heartbeat.Manager, *callout.Queue, *time.Time) {
	t.Helper()
	hb, err := heartbeat.NewManager(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q := callout.NewQueue(func() time.Time { return now })
	return hb, q, &now
}

func TestHeartbeat_HookAndEvent(t *testing.T) {
	hb, _, _ := newSchedulers(t)
	e := NewEntity("npc/guard", WithHeartbeats(hb))

	hooks, events := 0, 0
	e.OnHeartbeat = func(*Entity) error { hooks++; return nil }
	e.On(EventHeartbeat, func(*Event) { events++ })

	if err := e.EnableHeartbeat(2 * time.Second); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		hb.Tick()
	}
	if hooks != 2 || events != 2 {
		t.Errorf("hooks=%d events=%d, want 2/2", hooks, events)
	}

	e.DisableHeartbeat()
	e.DisableHeartbeat()
	hb.Tick()
	hb.Tick()
	if hooks != 2 {
		t.Errorf("hook fired after disable: %d", hooks)
	}
	if e.HeartbeatInterval() != 0 {
		t.Error("interval must reset after disable")
	}
}

func TestHeartbeat_ReEnableReplaces(t *testing.T) {
	hb, _, _ := newSchedulers(t)
	e := NewEntity("npc/guard", WithHeartbeats(hb))
	_ = e.EnableHeartbeat(time.Second)
	_ = e.EnableHeartbeat(3 * time.Second)

	if hb.Len() != 1 {
		t.Errorf("registrations = %d, want 1", hb.Len())
	}
	if hb.Interval(e) != 3*time.Second {
		t.Errorf("interval = %s, want 3s", hb.Interval(e))
	}

	if err := e.SetHeartbeatInterval(time.Second); err != nil {
		t.Fatal(err)
	}
	if e.HeartbeatInterval() != time.Second {
		t.Errorf("HeartbeatInterval = %s", e.HeartbeatInterval())
	}
}

func TestTimers_NoScheduler(t *testing.T) {
	e := NewEntity("obj/x")
	if err := e.EnableHeartbeat(time.Second); !errors.Is(err, ErrNoScheduler) {
		t.Errorf("EnableHeartbeat error = %v, want ErrNoScheduler", err)
	}
	if _, err := e.CallOut(func() {}, time.Second); !errors.Is(err, ErrNoScheduler) {
		t.Errorf("CallOut error = %v, want ErrNoScheduler", err)
	}
	e.DisableHeartbeat()
	e.ClearCallOuts()
}

func TestTimers_InvalidInterval(t *testing.T) {
	hb, _, _ := newSchedulers(t)
	e := NewEntity("obj/x", WithHeartbeats(hb))
	if err := e.EnableHeartbeat(0); !errors.Is(err, heartbeat.ErrInvalidInterval) {
		t.Errorf("error = %v, want ErrInvalidInterval", err)
	}
}

func TestCallOut_FiresOnceAndSelfRemoves(t *testing.T) {
	_, q, now := newSchedulers(t)
	e := NewEntity("npc/guard", WithCallOuts(q))

	fired := 0
	if _, err := e.CallOut(func() { fired++ }, 500*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if e.PendingCallOuts() != 1 {
		t.Fatalf("pending = %d, want 1", e.PendingCallOuts())
	}

	*now = now.Add(time.Second)
	q.RunDue(*now)
	q.RunDue(*now)

	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
	if e.PendingCallOuts() != 0 {
		t.Errorf("fired call-out must self-remove, pending = %d", e.PendingCallOuts())
	}
}

func TestCallOut_RemoveAndClear(t *testing.T) {
	_, q, now := newSchedulers(t)
	e := NewEntity("npc/guard", WithCallOuts(q))

	var fired []string
	a, _ := e.CallOut(func() { fired = append(fired, "a") }, time.Second)
	_, _ = e.CallOut(func() { fired = append(fired, "b") }, time.Second)

	if !e.RemoveCallOut(a) {
		t.Fatal("RemoveCallOut returned false")
	}
	if e.RemoveCallOut(a) {
		t.Error("second RemoveCallOut must return false")
	}

	*now = now.Add(2 * time.Second)
	q.RunDue(*now)
	if len(fired) != 1 || fired[0] != "b" {
		t.Errorf("fired = %v, want [b]", fired)
	}

	_, _ = e.CallOut(func() { fired = append(fired, "c") }, time.Second)
	_, _ = e.CallOut(func() { fired = append(fired, "d") }, time.Second)
	e.ClearCallOuts()
	*now = now.Add(2 * time.Second)
	q.RunDue(*now)
	if len(fired) != 1 {
		t.Errorf("cleared call-outs fired: %v", fired)
	}
	if q.Len() != 0 {
		t.Errorf("queue still holds %d calls", q.Len())
	}
}
