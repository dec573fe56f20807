package heartbeat

import (
	"errors"
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

type fakeSubject struct {
	id        string
	destroyed bool
	fires     int
	notified  int
	firedAt   []time.Duration
	clock     *time.Duration
	onFire    func()
	fail      bool
	panics    bool
}

func (f *fakeSubject) ID() string        { return f.id }
func (f *fakeSubject) IsDestroyed() bool { return f.destroyed }

func (f *fakeSubject) RunHeartbeat() error {
	f.fires++
	if f.clock != nil {
		f.firedAt = append(f.firedAt, *f.clock)
	}
	if f.onFire != nil {
		f.onFire()
	}
	if f.panics {
		panic("boom")
	}
	if f.fail {
		return errors.New("hook failed")
	}
	return nil
}

func (f *fakeSubject) EmitHeartbeat() { f.notified++ }

func newManager(t *testing.T, period time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(period)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// advance прокручивает менеджер на total и ведет счетчик времени для субъектов.
func advance(m *Manager, clock *time.Duration, total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += m.Period() {
		*clock += m.Period()
		m.Tick()
	}
}

func TestManager_FireCounts(t *testing.T) {
	tests := []struct {
		name      string
		interval  time.Duration
		advance   time.Duration
		wantFires int
		wantAt    []time.Duration
	}{
		{
			name:      "interval equals period",
			interval:  1000 * time.Millisecond,
			advance:   2000 * time.Millisecond,
			wantFires: 2,
			wantAt:    []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond},
		},
		{
			name:      "interval between periods fires on tick boundaries",
			interval:  1500 * time.Millisecond,
			advance:   3000 * time.Millisecond,
			wantFires: 2,
			wantAt:    []time.Duration{2000 * time.Millisecond, 3000 * time.Millisecond},
		},
		{
			name:      "fast interval fires twice per tick",
			interval:  500 * time.Millisecond,
			advance:   1000 * time.Millisecond,
			wantFires: 2,
			wantAt:    []time.Duration{1000 * time.Millisecond, 1000 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(t, time.Second)
			var clock time.Duration
			s := &fakeSubject{id: "npc/guard", clock: &clock}

			if err := m.Register(s, tt.interval); err != nil {
				t.Fatalf("Register: %v", err)
			}
			advance(m, &clock, tt.advance)

			if s.fires != tt.wantFires {
				t.Fatalf("fires = %d, want %d", s.fires, tt.wantFires)
			}
			if s.notified != tt.wantFires {
				t.Errorf("notifications = %d, want %d", s.notified, tt.wantFires)
			}
			for i, at := range tt.wantAt {
				if s.firedAt[i] != at {
					t.Errorf("fire %d at %s, want %s", i, s.firedAt[i], at)
				}
			}
		})
	}
}

func TestManager_InvalidInterval(t *testing.T) {
	m := newManager(t, time.Second)
	s := &fakeSubject{id: "a"}

	if err := m.Register(s, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Register(0) error = %v, want ErrInvalidInterval", err)
	}
	if err := m.Register(s, -time.Second); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Register(-1s) error = %v, want ErrInvalidInterval", err)
	}
	if m.Len() != 0 {
		t.Errorf("failed registration must not store entry, Len = %d", m.Len())
	}

	_ = m.Register(s, time.Second)
	if err := m.UpdateInterval(s, 0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("UpdateInterval(0) error = %v, want ErrInvalidInterval", err)
	}
	if _, err := NewManager(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("NewManager(0) error = %v, want ErrInvalidInterval", err)
	}
}

func TestManager_ReRegisterResetsAccumulated(t *testing.T) {
	m := newManager(t, time.Second)
	s := &fakeSubject{id: "a"}
	_ = m.Register(s, 3*time.Second)

	m.Tick()
	m.Tick() // накоплено 2с

	_ = m.Register(s, 3*time.Second) // полный перезапуск
	m.Tick()
	m.Tick()
	if s.fires != 0 {
		t.Fatalf("re-register should restart countdown, got %d fires", s.fires)
	}
	m.Tick()
	if s.fires != 1 {
		t.Errorf("fires = %d, want 1 after full interval", s.fires)
	}
	if m.Len() != 1 {
		t.Errorf("re-register must replace, Len = %d", m.Len())
	}
}

func TestManager_UpdateIntervalPreservesAccumulated(t *testing.T) {
	m := newManager(t, time.Second)
	s := &fakeSubject{id: "a"}
	_ = m.Register(s, 10*time.Second)

	for i := 0; i < 4; i++ {
		m.Tick()
	}
	// Накоплено 4с, новый интервал 2с: на следующем тике 5с => два срабатывания.
	if err := m.UpdateInterval(s, 2*time.Second); err != nil {
		t.Fatalf("UpdateInterval: %v", err)
	}
	m.Tick()
	if s.fires != 2 {
		t.Errorf("fires = %d, want 2 (catch-up after shrinking interval)", s.fires)
	}

	other := &fakeSubject{id: "b"}
	if err := m.UpdateInterval(other, time.Second); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("UpdateInterval on unknown subject = %v, want ErrNotRegistered", err)
	}
}

func TestManager_DestroyedSubjectIsDropped(t *testing.T) {
	m := newManager(t, time.Second)
	s := &fakeSubject{id: "a"}
	_ = m.Register(s, time.Second)

	s.destroyed = true
	m.Tick()

	if s.fires != 0 {
		t.Errorf("destroyed subject fired %d times", s.fires)
	}
	if m.IsRegistered(s) {
		t.Error("destroyed subject should be deregistered")
	}
}

func TestManager_FaultIsolation(t *testing.T) {
	m := newManager(t, time.Second)
	broken := &fakeSubject{id: "broken", panics: true}
	failing := &fakeSubject{id: "failing", fail: true}
	healthy := &fakeSubject{id: "healthy"}

	_ = m.Register(broken, 500*time.Millisecond)
	_ = m.Register(failing, time.Second)
	_ = m.Register(healthy, time.Second)

	m.Tick()

	if broken.fires != 2 {
		t.Errorf("panicking subject should still get both catch-up fires, got %d", broken.fires)
	}
	if broken.notified != 2 {
		t.Errorf("notification must be emitted despite callback panic, got %d", broken.notified)
	}
	if failing.fires != 1 || healthy.fires != 1 {
		t.Errorf("other subjects must fire: failing=%d healthy=%d", failing.fires, healthy.fires)
	}
}

func TestManager_UnregisterDuringCatchUp(t *testing.T) {
	m := newManager(t, time.Second)
	s := &fakeSubject{id: "a"}
	s.onFire = func() { m.Unregister(s) }
	_ = m.Register(s, 250*time.Millisecond)

	m.Tick()

	if s.fires != 1 {
		t.Errorf("fires = %d, want 1: unregister stops remaining catch-up", s.fires)
	}
	m.Unregister(s) // повторно - no-op
}

func TestManager_Snapshot(t *testing.T) {
	m := newManager(t, time.Second)
	a := &fakeSubject{id: "a"}
	b := &fakeSubject{id: "b"}
	_ = m.Register(a, 3*time.Second)
	_ = m.Register(b, 5*time.Second)
	m.Tick()

	snap := m.Snapshot()
	if len(snap) != 2 || snap[0].ID != "a" || snap[1].ID != "b" {
		t.Fatalf("unexpected snapshot order: %+v", snap)
	}
	if snap[0].Accumulated != time.Second {
		t.Errorf("accumulated = %s, want 1s", snap[0].Accumulated)
	}
}
