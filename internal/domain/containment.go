package domain

import (
	"mud-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

// Environment возвращает контейнер, в котором находится сущность, или nil.
func (e *Entity) Environment() *Entity { return e.environment }

// Inventory возвращает снимок прямых потомков в порядке добавления.
func (e *Entity) Inventory() []*Entity {
	out := make([]*Entity, len(e.inventory))
	copy(out, e.inventory)
	return out
}

// DeepInventory возвращает всех потомков рекурсивно, в прямом порядке (pre-order).
func (e *Entity) DeepInventory() []*Entity {
	var out []*Entity
	for _, child := range e.inventory {
		out = append(out, child)
		out = append(out, child.DeepInventory()...)
	}
	return out
}

// FindInInventory возвращает первого прямого потомка, для которого pred истинен.
func (e *Entity) FindInInventory(pred func(*Entity) bool) *Entity {
	for _, child := range e.inventory {
		if pred(child) {
			return child
		}
	}
	return nil
}

// Contains проверяет, лежит ли other непосредственно в этой сущности.
func (e *Entity) Contains(other *Entity) bool {
	for _, child := range e.inventory {
		if child == other {
			return true
		}
	}
	return false
}

// MoveTo перемещает сущность в dest с полным протоколом событий.
//
// 1. pre:move на самой сущности;
// 2. pre:leave на текущем окружении (если оно есть);
// 3. pre:receive на dest.
// Любая отмена возвращает false и оставляет состояние как было.
// После перестановки: post:leave, post:receive, post:move и encounter
// каждому, кто уже находился в dest.
func (e *Entity) MoveTo(dest *Entity) bool {
	if dest == nil || e.destroying || !e.canMoveTo(dest) {
		return false
	}

	e.moving = true
	defer func() { e.moving = false }()

	src := e.environment

	if !e.Emit(&Event{Name: EventPreMove, Actor: e, From: src, To: dest}) {
		return false
	}
	if src != nil && !src.Emit(&Event{Name: EventPreLeave, Actor: e, From: src, To: dest}) {
		return false
	}
	if !dest.Emit(&Event{Name: EventPreReceive, Actor: e, From: src, To: dest}) {
		return false
	}

	// Подписчики могли уничтожить участников.
	if e.destroyed || dest.destroyed || e.environment != src {
		return false
	}

	occupants := dest.Inventory()
	e.relink(dest)

	if src != nil {
		src.Emit(&Event{Name: EventPostLeave, Actor: e, From: src, To: dest})
	}
	dest.Emit(&Event{Name: EventPostReceive, Actor: e, From: src, To: dest})
	e.Emit(&Event{Name: EventPostMove, Actor: e, From: src, To: dest})

	for _, other := range occupants {
		if other == e {
			continue
		}
		other.Emit(&Event{Name: EventEncounter, Actor: e, From: src, To: dest})
	}
	return true
}

// MoveQuiet перемещает без событий: массовые переносы, спавн, телепорт, уборка.
// dest == nil отцепляет сущность от окружения.
func (e *Entity) MoveQuiet(dest *Entity) bool {
	if dest != nil && !e.canMoveTo(dest) {
		return false
	}
	if dest == nil && (e.destroyed || e.moving) {
		return false
	}
	e.relink(dest)
	return true
}

func (e *Entity) canMoveTo(dest *Entity) bool {
	if e.destroyed || dest.destroyed || dest.destroying {
		return false
	}
	if e.moving {
		logger.Log.WithFields(logrus.Fields{
			"component": "containment",
			"entity_id": e.id,
			"dest_id":   dest.id,
		}).Warn("Move rejected: another move is in flight")
		return false
	}
	// Дерево: нельзя положить сущность в саму себя или в своего потомка.
	for cur := dest; cur != nil; cur = cur.environment {
		if cur == e {
			return false
		}
	}
	return true
}

// relink меняет связи окружения и инвентаря, сохраняя их симметричность.
func (e *Entity) relink(dest *Entity) {
	if src := e.environment; src != nil {
		for i, child := range src.inventory {
			if child == e {
				src.inventory = append(src.inventory[:i], src.inventory[i+1:]...)
				break
			}
		}
	}
	if dest != nil {
		dest.inventory = append(dest.inventory, e)
	}
	e.environment = dest
}
