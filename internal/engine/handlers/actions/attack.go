package actions

import (
	"fmt"

	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/internal/engine/handlers"
	"mud-server/internal/world"
	"mud-server/pkg/api"

	"github.com/pkg/errors"
)

// HandleAttack начинает бой с целью в той же комнате.
// В бою Skill ставит прием на следующий ход.
func HandleAttack(ctx handlers.Context, p api.AttackPayload) (handlers.Result, error) {
	if ctx.Combat.IsInCombat(ctx.Actor) {
		if p.Skill == "" {
			return handlers.Reply("Вы уже сражаетесь.", "ERROR"), nil
		}
		return queueSkill(ctx, p.Skill)
	}
	if p.TargetID == "" {
		return handlers.Reply("Кого атаковать?", "ERROR"), nil
	}

	// 1. Поиск цели
	target, ok := ctx.World.Find(p.TargetID)
	if !ok || target.Environment() == nil || target.Environment() != ctx.Actor.Environment() {
		return handlers.Reply("Цель не найдена.", "ERROR"), nil
	}
	if target.Kind() != domain.KindNPC && target.Kind() != domain.KindPlayer {
		return handlers.Reply("Это нельзя атаковать.", "ERROR"), nil
	}
	if target.GetBool(world.AttrPeaceful) {
		return handlers.Reply(fmt.Sprintf("%s не желает драться.", target.Name()), "ERROR"), nil
	}

	// 2. Вызов Системы Боя
	if _, err := ctx.Combat.StartCombat(ctx.Actor, target); err != nil {
		switch {
		case errors.Is(err, combat.ErrSameEntity):
			return handlers.Reply("Нельзя напасть на самого себя.", "ERROR"), nil
		case errors.Is(err, combat.ErrDead):
			return handlers.Reply("Цель уже повержена.", "ERROR"), nil
		case errors.Is(err, combat.ErrAlreadyFighting):
			return handlers.Reply("Цель уже с кем-то сражается.", "ERROR"), nil
		}
		return handlers.Result{}, err
	}

	ctx.World.BroadcastText(ctx.Actor.Environment(),
		fmt.Sprintf("%s нападает на %s!", ctx.Actor.Name(), target.Name()), "COMBAT", ctx.Actor)

	if p.Skill != "" {
		return queueSkill(ctx, p.Skill)
	}
	return handlers.EmptyResult(), nil
}

func queueSkill(ctx handlers.Context, skill string) (handlers.Result, error) {
	if err := ctx.Combat.QueueAction(ctx.Actor, skill); err != nil {
		return handlers.Reply("Вы не знаете такого приема.", "ERROR"), nil
	}
	return handlers.Reply("Вы готовите прием.", "COMBAT"), nil
}
