package handlers

import (
	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/internal/world"

	"github.com/goccy/go-json"
)

// Context передает хендлеру состояние мира.
// Хендлер вызывается из игрового цикла и может мутировать сущности.
type Context struct {
	World  *world.World
	Combat *combat.Manager
	Actor  *domain.Entity // Игрок, выполняющий команду
}

// Result - ответ игроку на его команду.
// Хендлер НЕ пишет в сокет напрямую, он возвращает данные.
type Result struct {
	Msg     string // Текст лога
	MsgType string // Тип лога (INFO, COMBAT, SPEECH, ERROR)
}

// HandlerFunc - это контракт для любой команды (LOOK, GO, ATTACK, etc).
type HandlerFunc func(ctx Context, payload json.RawMessage) (Result, error)

// EmptyResult - вспомогательная функция для пустого успешного ответа
func EmptyResult() Result {
	return Result{}
}

// Reply - ответ с текстом.
func Reply(msg, msgType string) Result {
	return Result{Msg: msg, MsgType: msgType}
}
