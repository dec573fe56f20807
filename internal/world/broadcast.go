package world

import (
	"mud-server/internal/domain"
	"mud-server/pkg/api"
)

// LogMessage собирает сообщение для игрового лога.
func (w *World) LogMessage(text, typ string) api.ServerMessage {
	return api.ServerMessage{Type: api.MsgLog, Payload: api.LogEntry{
		Text:      text,
		Type:      typ,
		Timestamp: w.now().UnixMilli(),
	}}
}

// Tell отправляет текст одному игроку.
func (w *World) Tell(player *domain.Entity, text, typ string) {
	if w.sender == nil || !player.IsPlayer() {
		return
	}
	w.sender.SendTo(player.ID(), w.LogMessage(text, typ))
}

// Broadcast рассылает сообщение всем игрокам в room, кроме exclude.
// Возвращает число получателей.
func (w *World) Broadcast(room *domain.Entity, msg api.ServerMessage, exclude ...*domain.Entity) int {
	if room == nil || w.sender == nil {
		return 0
	}
	sent := 0
	for _, e := range room.Inventory() {
		if !e.IsPlayer() || contains(exclude, e) {
			continue
		}
		w.sender.SendTo(e.ID(), msg)
		sent++
	}
	return sent
}

// BroadcastText - Broadcast для простого текста.
func (w *World) BroadcastText(room *domain.Entity, text, typ string, exclude ...*domain.Entity) int {
	return w.Broadcast(room, w.LogMessage(text, typ), exclude...)
}

func contains(list []*domain.Entity, e *domain.Entity) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
