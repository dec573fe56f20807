package actions

import "mud-server/internal/engine/handlers"

// HandleLook отправляет игроку описание его комнаты.
func HandleLook(ctx handlers.Context) (handlers.Result, error) {
	if ctx.Actor.Environment() == nil {
		return handlers.Reply("Вы парите в пустоте.", "INFO"), nil
	}
	ctx.World.SendLook(ctx.Actor)
	return handlers.EmptyResult(), nil
}
