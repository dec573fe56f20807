package actions

import (
	"fmt"

	"mud-server/internal/engine/handlers"
	"mud-server/internal/world"
	"mud-server/pkg/api"

	"github.com/pkg/errors"
)

// HandleGo уводит игрока через выход комнаты.
func HandleGo(ctx handlers.Context, p api.ExitPayload) (handlers.Result, error) {
	if ctx.Combat.IsInCombat(ctx.Actor) {
		return handlers.Reply("Вы в бою! Сначала попробуйте сбежать.", "ERROR"), nil
	}

	from := ctx.Actor.Environment()
	moved, err := ctx.World.Go(ctx.Actor, p.Exit)
	switch {
	case errors.Is(err, world.ErrNoExit):
		return handlers.Reply("Туда не пройти.", "ERROR"), nil
	case err != nil:
		return handlers.Result{}, err
	case !moved:
		// Отказ уже объяснил тот, кто его вынес.
		return handlers.EmptyResult(), nil
	}

	name := ctx.Actor.Name()
	ctx.World.BroadcastText(from, fmt.Sprintf("%s уходит (%s).", name, p.Exit), "INFO")
	ctx.World.BroadcastText(ctx.Actor.Environment(), fmt.Sprintf("%s приходит.", name), "INFO", ctx.Actor)
	ctx.World.SendLook(ctx.Actor)
	return handlers.EmptyResult(), nil
}
