package admin

import (
	"fmt"
	"strings"

	"mud-server/internal/domain"
	"mud-server/internal/engine/handlers"

	"github.com/pkg/errors"
)

// TeleportPayload: { "room": "room/forest" }
type TeleportPayload struct {
	Room string `json:"room"`
}

func (p TeleportPayload) Validate() error {
	if strings.TrimSpace(p.Room) == "" {
		return errors.New("room is required")
	}
	return nil
}

// HandleTeleport тихо переносит администратора в комнату, минуя любые запреты.
func HandleTeleport(ctx handlers.Context, p TeleportPayload) (handlers.Result, error) {
	if ctx.Combat.IsInCombat(ctx.Actor) {
		return handlers.Reply("Teleport failed: in combat", "ERROR"), nil
	}
	room, ok := ctx.World.Room(p.Room)
	if !ok {
		return handlers.Reply(fmt.Sprintf("Teleport failed: no room %s", p.Room), "ERROR"), nil
	}
	if !ctx.Actor.MoveQuiet(room) {
		return handlers.Reply("Teleport failed", "ERROR"), nil
	}
	ctx.World.SendLook(ctx.Actor)
	return handlers.Reply("Teleported via Admin Magic", "INFO"), nil
}

// SpawnPayload: { "template": "npc/orc" }
type SpawnPayload struct {
	Template string `json:"template"`
}

func (p SpawnPayload) Validate() error {
	if strings.TrimSpace(p.Template) == "" {
		return errors.New("template is required")
	}
	return nil
}

// HandleSpawn создает экземпляр шаблона в комнате администратора.
func HandleSpawn(ctx handlers.Context, p SpawnPayload) (handlers.Result, error) {
	e, err := ctx.World.Spawn(p.Template, ctx.Actor.Environment())
	if err != nil {
		return handlers.Reply(fmt.Sprintf("Spawn failed: %v", err), "ERROR"), nil
	}
	return handlers.Reply(fmt.Sprintf("Spawned %s", e.ID()), "INFO"), nil
}

func HandleHeal(ctx handlers.Context) (handlers.Result, error) {
	ctx.Actor.Set(domain.AttrHP, ctx.Actor.GetFloat(domain.AttrMaxHP))
	return handlers.Reply("Fully Healed", "INFO"), nil
}

type KillPayload struct {
	TargetID string `json:"targetId"`
}

func (p KillPayload) Validate() error {
	if p.TargetID == "" {
		return errors.New("targetId is required")
	}
	return nil
}

// HandleKill обнуляет здоровье цели. В бою исход решит следующий тик,
// вне боя NPC погибает сразу с трупом и возрождением.
func HandleKill(ctx handlers.Context, p KillPayload) (handlers.Result, error) {
	target, ok := ctx.World.Find(p.TargetID)
	if !ok || target.Kind() != domain.KindNPC {
		return handlers.Reply("Target not found", "ERROR"), nil
	}
	target.Set(domain.AttrHP, 0.0)
	if !ctx.Combat.IsInCombat(target) {
		ctx.World.OnVictory(nil, ctx.Actor, target)
	}
	return handlers.Reply(fmt.Sprintf("Smited %s", target.Name()), "COMBAT"), nil
}

// HandleSweep запускает сборку мусора вне расписания.
func HandleSweep(ctx handlers.Context) (handlers.Result, error) {
	st := ctx.World.Objects().Sweep()
	return handlers.Reply(fmt.Sprintf("GC: reset=%d failed=%d destroyed=%d purged=%d",
		st.Reset, st.Failed, st.Destroyed, st.Purged), "INFO"), nil
}
