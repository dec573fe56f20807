package domain

import (
	"time"

	"mud-server/internal/callout"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EnableHeartbeat (пере)запускает периодический вызов OnHeartbeat и событие "heartbeat".
// Повторный вызов заменяет регистрацию и обнуляет накопленное время.
func (e *Entity) EnableHeartbeat(interval time.Duration) error {
	if e.destroyed || e.destroying {
		return errors.Wrapf(ErrDestroyed, "enable heartbeat on %s", e.id)
	}
	if e.heartbeats == nil {
		return errors.Wrapf(ErrNoScheduler, "enable heartbeat on %s", e.id)
	}
	if err := e.heartbeats.Register(e, interval); err != nil {
		return errors.Wrapf(err, "enable heartbeat on %s", e.id)
	}
	e.heartbeatInterval = interval
	return nil
}

// SetHeartbeatInterval меняет интервал, не сбрасывая накопленное время.
func (e *Entity) SetHeartbeatInterval(interval time.Duration) error {
	if e.destroyed {
		return errors.Wrapf(ErrDestroyed, "set heartbeat interval on %s", e.id)
	}
	if e.heartbeats == nil {
		return errors.Wrapf(ErrNoScheduler, "set heartbeat interval on %s", e.id)
	}
	if err := e.heartbeats.UpdateInterval(e, interval); err != nil {
		return errors.Wrapf(err, "set heartbeat interval on %s", e.id)
	}
	e.heartbeatInterval = interval
	return nil
}

// DisableHeartbeat выключает сердцебиение. Если оно не включено, ничего не делает.
func (e *Entity) DisableHeartbeat() {
	if e.heartbeatInterval == 0 || e.heartbeats == nil {
		return
	}
	e.heartbeats.Unregister(e)
	e.heartbeatInterval = 0
}

// HeartbeatInterval возвращает текущий интервал или 0, если сердцебиение выключено.
func (e *Entity) HeartbeatInterval() time.Duration { return e.heartbeatInterval }

// RunHeartbeat вызывается менеджером сердцебиений.
func (e *Entity) RunHeartbeat() error {
	if e.OnHeartbeat == nil {
		return nil
	}
	return e.OnHeartbeat(e)
}

// EmitHeartbeat рассылает событие "heartbeat" подписчикам.
func (e *Entity) EmitHeartbeat() {
	e.Emit(&Event{Name: EventHeartbeat, Actor: e})
}

// CallOut планирует одноразовый вызов fn через delay.
// Вызов снимается с учета после срабатывания и не выполняется, если сущность уже уничтожена.
func (e *Entity) CallOut(fn func(), delay time.Duration) (callout.ID, error) {
	if e.destroyed || e.destroying {
		return 0, errors.Wrapf(ErrDestroyed, "call out on %s", e.id)
	}
	if e.callOuts == nil {
		return 0, errors.Wrapf(ErrNoScheduler, "call out on %s", e.id)
	}

	var id callout.ID
	id = e.callOuts.Schedule(delay, func() {
		delete(e.pending, id)
		if e.destroyed {
			return
		}
		fn()
	})
	e.pending[id] = struct{}{}

	logger.Log.WithFields(logrus.Fields{
		"component":  "entity",
		"entity_id":  e.id,
		"callout_id": id,
		"delay":      delay,
	}).Debug("Call-out scheduled")
	return id, nil
}

// RemoveCallOut отменяет отложенный вызов этой сущности.
func (e *Entity) RemoveCallOut(id callout.ID) bool {
	if _, ok := e.pending[id]; !ok {
		return false
	}
	delete(e.pending, id)
	return e.callOuts.Cancel(id)
}

// ClearCallOuts отменяет все отложенные вызовы.
func (e *Entity) ClearCallOuts() {
	for id := range e.pending {
		e.callOuts.Cancel(id)
	}
	e.pending = make(map[callout.ID]struct{})
}

// PendingCallOuts возвращает число ожидающих вызовов.
func (e *Entity) PendingCallOuts() int { return len(e.pending) }
