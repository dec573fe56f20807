package callout

import (
	"io"
	"os"
	"testing"
	"time"

	"mud-server/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitWithOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestQueue() (*Queue, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return NewQueue(clock.Now), clock
}

func TestQueue_RunDueOrder(t *testing.T) {
	q, clock := newTestQueue()
	var got []string

	q.Schedule(300*time.Millisecond, func() { got = append(got, "c") })
	q.Schedule(100*time.Millisecond, func() { got = append(got, "a") })
	q.Schedule(100*time.Millisecond, func() { got = append(got, "b") })
	q.Schedule(time.Second, func() { got = append(got, "late") })

	clock.Advance(500 * time.Millisecond)
	if n := q.RunDue(clock.Now()); n != 3 {
		t.Fatalf("RunDue fired %d, want 3", n)
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d = %q, want %q (order %v)", i, got[i], want[i], got)
		}
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1 pending", q.Len())
	}
}

func TestQueue_Cancel(t *testing.T) {
	q, clock := newTestQueue()
	fired := false
	id := q.Schedule(time.Second, func() { fired = true })

	if !q.Pending(id) {
		t.Fatal("scheduled call should be pending")
	}
	if !q.Cancel(id) {
		t.Fatal("Cancel should report true for pending call")
	}
	if q.Cancel(id) {
		t.Error("second Cancel should report false")
	}

	clock.Advance(2 * time.Second)
	q.RunDue(clock.Now())
	if fired {
		t.Error("cancelled call fired")
	}
}

func TestQueue_CancelWithinBatch(t *testing.T) {
	q, clock := newTestQueue()
	var second ID
	secondFired := false

	q.Schedule(0, func() { q.Cancel(second) })
	second = q.Schedule(0, func() { secondFired = true })

	q.RunDue(clock.Now())
	if secondFired {
		t.Error("call cancelled by an earlier call in the same pass must not fire")
	}
}

func TestQueue_ScheduleDuringRunFiresLater(t *testing.T) {
	q, clock := newTestQueue()
	nested := false
	q.Schedule(0, func() {
		q.Schedule(0, func() { nested = true })
	})

	q.RunDue(clock.Now())
	if nested {
		t.Fatal("call scheduled during a pass must wait for the next pass")
	}
	q.RunDue(clock.Now())
	if !nested {
		t.Error("nested call should fire on the next pass")
	}
}

func TestQueue_PanicIsIsolated(t *testing.T) {
	q, clock := newTestQueue()
	after := false
	q.Schedule(0, func() { panic("script error") })
	q.Schedule(0, func() { after = true })

	if n := q.RunDue(clock.Now()); n != 2 {
		t.Errorf("RunDue = %d, want 2", n)
	}
	if !after {
		t.Error("call after a panicking one must still run")
	}
	if _, ok := q.Next(); ok {
		t.Error("queue should be empty")
	}
}
