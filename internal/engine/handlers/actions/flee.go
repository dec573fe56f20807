package actions

import "mud-server/internal/engine/handlers"

// HandleFlee - попытка сбежать из боя. Успех обрабатывают последствия боя.
func HandleFlee(ctx handlers.Context) (handlers.Result, error) {
	id := ctx.Combat.CombatID(ctx.Actor)
	if id == "" {
		return handlers.Reply("Вы ни с кем не сражаетесь.", "ERROR"), nil
	}
	ok, err := ctx.Combat.AttemptFlee(id, ctx.Actor)
	if err != nil {
		return handlers.Result{}, err
	}
	if !ok {
		return handlers.Reply("Вам не удалось сбежать!", "COMBAT"), nil
	}
	return handlers.EmptyResult(), nil
}
