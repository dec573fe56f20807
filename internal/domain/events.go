package domain

import (
	"strings"

	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Имена событий жизненного цикла.
// События с префиксом "pre:" можно отменить.
const (
	EventPreMove     = "pre:move"
	EventPreLeave    = "pre:leave"
	EventPreReceive  = "pre:receive"
	EventPostLeave   = "post:leave"
	EventPostReceive = "post:receive"
	EventPostMove    = "post:move"
	EventEncounter   = "encounter"
	EventHeartbeat   = "heartbeat"
	EventDestroyed   = "destroyed"
)

const cancellablePrefix = "pre:"

// Event передается подписчикам по указателю, поэтому отмена видна эмиттеру.
type Event struct {
	Name string
	// Target - сущность, на которой сработало событие. Заполняет Emit.
	Target *Entity
	// Actor - тот, кто перемещается, появился рядом или уничтожается.
	Actor *Entity
	From  *Entity
	To    *Entity
	// Data - произвольные данные для пользовательских событий.
	Data any

	cancelled bool
}

// Cancel отменяет событие. Для событий без префикса "pre:" ни на что не влияет.
func (ev *Event) Cancel() { ev.cancelled = true }

// Cancelled сообщает, отменил ли кто-то событие.
func (ev *Event) Cancelled() bool { return ev.cancelled }

// Cancellable проверяет, можно ли отменить событие.
func (ev *Event) Cancellable() bool { return strings.HasPrefix(ev.Name, cancellablePrefix) }

// Listener - подписчик на событие.
type Listener func(ev *Event)

// ListenerID идентифицирует подписку для Off.
type ListenerID uint64

type subscription struct {
	id ListenerID
	fn Listener
}

// On подписывает listener на событие name. Подписчики вызываются в порядке подписки.
func (e *Entity) On(name string, listener Listener) ListenerID {
	if e.destroyed {
		return 0
	}
	e.nextListener++
	e.listeners[name] = append(e.listeners[name], subscription{id: e.nextListener, fn: listener})
	return e.nextListener
}

// Off снимает подписку.
func (e *Entity) Off(id ListenerID) bool {
	for name, subs := range e.listeners {
		for i, s := range subs {
			if s.id == id {
				e.listeners[name] = append(subs[:i], subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// RemoveAllListeners снимает все подписки.
func (e *Entity) RemoveAllListeners() {
	e.listeners = make(map[string][]subscription)
}

// ListenerCount возвращает число подписчиков на событие.
func (e *Entity) ListenerCount(name string) int {
	return len(e.listeners[name])
}

// Emit синхронно рассылает событие всем подписчикам и возвращает true,
// если событие не отменено. Отмена проверяется после того, как отработали все.
//
// Паника подписчика логируется; для отменяемого события она считается отменой.
// На уничтоженной сущности Emit ничего не делает.
func (e *Entity) Emit(ev *Event) bool {
	if e.destroyed {
		return true
	}
	ev.Target = e

	subs := e.listeners[ev.Name]
	if len(subs) == 0 {
		return true
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)

	for _, s := range snapshot {
		if err := callListener(s.fn, ev); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "events",
				"entity_id": e.id,
				"event":     ev.Name,
			}).WithError(err).Error("Event listener failed")
			if ev.Cancellable() {
				ev.Cancel()
			}
		}
	}

	if !ev.Cancellable() {
		return true
	}
	return !ev.cancelled
}

func callListener(fn Listener, ev *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("listener panic: %v", r)
		}
	}()
	fn(ev)
	return nil
}
