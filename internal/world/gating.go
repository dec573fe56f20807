package world

import (
	"time"

	"mud-server/internal/callout"
	"mud-server/internal/domain"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// passPath - временный флаг пропуска в комнату.
func passPath(passID string) string {
	return "pass" + domain.PathSeparator + passID
}

// RequirePass запрещает вход в room игрокам без временного пропуска passID.
// NPC проходят свободно. Отказ сопровождается сообщением refusal.
func (w *World) RequirePass(room *domain.Entity, passID, refusal string) domain.ListenerID {
	return room.On(domain.EventPreReceive, func(ev *domain.Event) {
		actor := ev.Actor
		if actor == nil || !actor.IsPlayer() || actor.TempBool(passPath(passID)) {
			return
		}
		ev.Cancel()
		w.Tell(actor, refusal, "ERROR")
	})
}

// GrantPass выдает пропуск на ttl. Повторная выдача продлевает срок.
func (w *World) GrantPass(e *domain.Entity, passID string, ttl time.Duration) error {
	path := passPath(passID)
	timerPath := "pass_timer" + domain.PathSeparator + passID

	if prev, ok := e.GetTemp(timerPath).(callout.ID); ok {
		e.RemoveCallOut(prev)
	}

	e.SetTemp(path, true)
	id, err := e.CallOut(func() {
		e.DelTemp(path)
		e.DelTemp(timerPath)
		w.Tell(e, "Срок вашего пропуска истек.", "INFO")
	}, ttl)
	if err != nil {
		e.DelTemp(path)
		return errors.Wrapf(err, "grant pass %s", passID)
	}
	e.SetTemp(timerPath, id)

	logger.Log.WithFields(logrus.Fields{
		"component": "world",
		"entity_id": e.ID(),
		"pass":      passID,
		"ttl":       ttl,
	}).Debug("Pass granted")
	return nil
}

// HasPass проверяет действующий пропуск.
func HasPass(e *domain.Entity, passID string) bool {
	return e.TempBool(passPath(passID))
}
