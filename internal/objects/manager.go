package objects

import (
	"sort"
	"strconv"

	"mud-server/internal/domain"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateID = errors.New("object id already registered")
	ErrNilEntity   = errors.New("entity is nil")
)

// SweepStats - итог одного прохода сборщика мусора.
type SweepStats struct {
	Reset     int // успешно вызванных OnReset
	Failed    int // упавших хуков OnReset/OnCleanUp
	Destroyed int // уничтожено по согласию
	Purged    int // удалено уже уничтоженных
}

// Manager - реестр живых объектов мира и сборщик мусора.
// Не потокобезопасен: все вызовы идут из игрового цикла.
type Manager struct {
	objects  map[string]*domain.Entity
	counters map[string]int
}

func NewManager() *Manager {
	return &Manager{
		objects:  make(map[string]*domain.Entity),
		counters: make(map[string]int),
	}
}

// Register добавляет сущность. Повторный id - ошибка.
func (m *Manager) Register(e *domain.Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if _, ok := m.objects[e.ID()]; ok {
		return errors.Wrapf(ErrDuplicateID, "register %s", e.ID())
	}
	m.objects[e.ID()] = e
	return nil
}

// Unregister убирает сущность по id. Отсутствие - не ошибка.
func (m *Manager) Unregister(id string) {
	delete(m.objects, id)
}

// FindByID возвращает живую сущность.
func (m *Manager) FindByID(id string) (*domain.Entity, bool) {
	e, ok := m.objects[id]
	if !ok || e.IsDestroyed() {
		return nil, false
	}
	return e, true
}

// FindAll возвращает живые сущности, прошедшие фильтр (nil - все), по возрастанию id.
func (m *Manager) FindAll(pred func(*domain.Entity) bool) []*domain.Entity {
	out := make([]*domain.Entity, 0, len(m.objects))
	for _, e := range m.objects {
		if e.IsDestroyed() {
			continue
		}
		if pred == nil || pred(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Count возвращает число записей, включая еще не вычищенные уничтоженные.
func (m *Manager) Count() int { return len(m.objects) }

// NextInstanceID выдает "tpl#N". Счетчик свой для каждого шаблона и начинается с 1.
func (m *Manager) NextInstanceID(templateID string) string {
	m.counters[templateID]++
	return templateID + "#" + strconv.Itoa(m.counters[templateID])
}

// --- СБОРКА МУСОРА ---

// ResetAll вызывает OnReset у всех живых сущностей.
func (m *Manager) ResetAll() (ok, failed int) {
	for _, e := range m.FindAll(nil) {
		if e.OnReset == nil {
			continue
		}
		if err := safeHook(func() error { return e.OnReset(e) }); err != nil {
			failed++
			logHookFailure(e, "reset", err)
			continue
		}
		ok++
	}
	return ok, failed
}

// CleanUp спрашивает каждую живую сущность, согласна ли она на уничтожение.
// Нет хука, ошибка или паника - согласия нет.
func (m *Manager) CleanUp() (destroyed, failed int) {
	for _, e := range m.FindAll(nil) {
		if e.OnCleanUp == nil || e.IsDestroyed() {
			continue
		}
		var consent bool
		err := safeHook(func() error {
			var hookErr error
			consent, hookErr = e.OnCleanUp(e)
			return hookErr
		})
		if err != nil {
			failed++
			logHookFailure(e, "clean_up", err)
			continue
		}
		if consent {
			e.Destroy()
			destroyed++
		}
	}
	return destroyed, failed
}

// RemoveDestructed удаляет из реестра уже уничтоженные сущности.
func (m *Manager) RemoveDestructed() int {
	purged := 0
	for id, e := range m.objects {
		if e.IsDestroyed() {
			delete(m.objects, id)
			purged++
		}
	}
	return purged
}

// Sweep выполняет три прохода подряд: ResetAll, CleanUp, RemoveDestructed.
func (m *Manager) Sweep() SweepStats {
	var stats SweepStats
	var failed int

	stats.Reset, failed = m.ResetAll()
	stats.Failed += failed
	stats.Destroyed, failed = m.CleanUp()
	stats.Failed += failed
	stats.Purged = m.RemoveDestructed()

	logger.Log.WithFields(logrus.Fields{
		"component": "gc",
		"reset":     stats.Reset,
		"failed":    stats.Failed,
		"destroyed": stats.Destroyed,
		"purged":    stats.Purged,
		"live":      len(m.objects),
	}).Info("GC sweep finished")
	return stats
}

func safeHook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("hook panic: %v", r)
		}
	}()
	return fn()
}

func logHookFailure(e *domain.Entity, stage string, err error) {
	logger.Log.WithFields(logrus.Fields{
		"component": "gc",
		"entity_id": e.ID(),
		"stage":     stage,
	}).WithError(err).Error("GC hook failed")
}
