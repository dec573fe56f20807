package heartbeat

import (
	"time"

	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidInterval возвращается при интервале <= 0.
	ErrInvalidInterval = errors.New("heartbeat interval must be positive")
	// ErrNotRegistered возвращается UpdateInterval для незарегистрированного субъекта.
	ErrNotRegistered = errors.New("heartbeat subject is not registered")
)

// Subject - всё, что может получать сердцебиение.
// *domain.Entity реализует этот интерфейс.
type Subject interface {
	ID() string
	IsDestroyed() bool
	// RunHeartbeat вызывает пользовательский колбэк сущности.
	RunHeartbeat() error
	// EmitHeartbeat рассылает уведомление "heartbeat" подписчикам.
	EmitHeartbeat()
}

type entry struct {
	subject     Subject
	interval    time.Duration
	accumulated time.Duration
}

// EntryView - снимок записи для отладки.
type EntryView struct {
	ID          string        `json:"id"`
	Interval    time.Duration `json:"interval"`
	Accumulated time.Duration `json:"accumulated"`
}

// Manager мультиплексирует все сердцебиения на один общий тик.
// Не потокобезопасен: вызывается только из игрового цикла.
type Manager struct {
	period  time.Duration
	entries map[Subject]*entry
	order   []Subject // порядок регистрации, по нему идет обход
	ticks   uint64
}

// NewManager создает менеджер с периодом тика period.
func NewManager(period time.Duration) (*Manager, error) {
	if period <= 0 {
		return nil, errors.Wrapf(ErrInvalidInterval, "tick period %s", period)
	}
	return &Manager{
		period:  period,
		entries: make(map[Subject]*entry),
	}, nil
}

// Period возвращает период общего тика.
func (m *Manager) Period() time.Duration { return m.period }

// Ticks возвращает число обработанных тиков.
func (m *Manager) Ticks() uint64 { return m.ticks }

// Register ставит субъекта на сердцебиение. Повторная регистрация
// перезапускает отсчет с нуля, а не добавляет второй таймер.
func (m *Manager) Register(s Subject, interval time.Duration) error {
	if interval <= 0 {
		return errors.Wrapf(ErrInvalidInterval, "register %s: %s", s.ID(), interval)
	}
	if e, ok := m.entries[s]; ok {
		e.interval = interval
		e.accumulated = 0
		return nil
	}
	m.entries[s] = &entry{subject: s, interval: interval}
	m.order = append(m.order, s)
	return nil
}

// UpdateInterval меняет только интервал, накопленное время сохраняется.
// Если накопленное уже больше нового интервала, срабатывание будет на следующем тике.
func (m *Manager) UpdateInterval(s Subject, interval time.Duration) error {
	if interval <= 0 {
		return errors.Wrapf(ErrInvalidInterval, "update %s: %s", s.ID(), interval)
	}
	e, ok := m.entries[s]
	if !ok {
		return errors.Wrapf(ErrNotRegistered, "update %s", s.ID())
	}
	e.interval = interval
	return nil
}

// Unregister снимает субъекта. Ничего не делает, если его нет.
func (m *Manager) Unregister(s Subject) {
	if _, ok := m.entries[s]; !ok {
		return
	}
	delete(m.entries, s)
	for i, cur := range m.order {
		if cur == s {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// IsRegistered проверяет наличие активной регистрации.
func (m *Manager) IsRegistered(s Subject) bool {
	_, ok := m.entries[s]
	return ok
}

// Interval возвращает текущий интервал субъекта или 0.
func (m *Manager) Interval(s Subject) time.Duration {
	if e, ok := m.entries[s]; ok {
		return e.interval
	}
	return 0
}

// Len возвращает число зарегистрированных субъектов.
func (m *Manager) Len() int { return len(m.entries) }

// Tick продвигает общие часы на один период.
//
// Для каждого субъекта накопленное время увеличивается на период, и пока оно
// не меньше интервала, субъект срабатывает, а интервал вычитается. Так быстрые
// интервалы срабатывают несколько раз за тик, а после лагов догоняют детерминированно.
// Ошибка или паника в колбэке логируется и не останавливает остальных.
func (m *Manager) Tick() {
	m.ticks++

	subjects := make([]Subject, len(m.order))
	copy(subjects, m.order)

	for _, s := range subjects {
		e, ok := m.entries[s]
		if !ok {
			continue // сняли во время этого же тика
		}
		if s.IsDestroyed() {
			m.Unregister(s)
			continue
		}

		e.accumulated += m.period
		for e.accumulated >= e.interval {
			e.accumulated -= e.interval
			m.fire(s)

			// Колбэк мог снять или перерегистрировать субъекта.
			if cur, ok := m.entries[s]; !ok || cur != e || s.IsDestroyed() {
				break
			}
		}
	}
}

func (m *Manager) fire(s Subject) {
	if err := safeCall(s.RunHeartbeat); err != nil {
		m.logFailure(s, "callback", err)
	}
	if err := safeCall(func() error {
		s.EmitHeartbeat()
		return nil
	}); err != nil {
		m.logFailure(s, "notify", err)
	}
}

func (m *Manager) logFailure(s Subject, stage string, err error) {
	logger.Log.WithFields(logrus.Fields{
		"component": "heartbeat",
		"entity_id": s.ID(),
		"stage":     stage,
		"tick":      m.ticks,
	}).WithError(err).Error("Heartbeat failed")
}

// Snapshot возвращает состояние всех записей в порядке регистрации.
func (m *Manager) Snapshot() []EntryView {
	result := make([]EntryView, 0, len(m.order))
	for _, s := range m.order {
		e := m.entries[s]
		result = append(result, EntryView{
			ID:          s.ID(),
			Interval:    e.interval,
			Accumulated: e.accumulated,
		})
	}
	return result
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
