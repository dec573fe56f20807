package combat

import (
	"fmt"

	"mud-server/internal/domain"
)

// AttrWeaponType - тип оружия в руках ("blade", "blunt", "bow").
const AttrWeaponType = "weapon/type"

// DefaultActions - приемы, доступные всем.
func DefaultActions() []Action {
	return []Action{
		{ID: "power_strike", Name: "Мощный удар", AttackBonus: 5, DamageBonus: 3, Weapon: "blade"},
		{ID: "crushing_blow", Name: "Сокрушающий удар", AttackBonus: 2, DamageBonus: 6, Weapon: "blunt"},
		{ID: "aimed_shot", Name: "Прицельный выстрел", AttackBonus: 8, Weapon: "bow"},
	}
}

func attackText(attacker, target *domain.Entity, action *Action, res Result) string {
	if action != nil {
		return fmt.Sprintf("%s применяет «%s» и наносит %s %d урона.", attacker.Name(), action.Name, target.Name(), res.Damage)
	}
	if res.Crit {
		return fmt.Sprintf("%s наносит сокрушительный удар по %s: %d урона!", attacker.Name(), target.Name(), res.Damage)
	}
	return fmt.Sprintf("%s наносит %d урона по %s.", attacker.Name(), res.Damage, target.Name())
}

func fleeFailedText(fleer *domain.Entity) string {
	return fmt.Sprintf("%s пытается сбежать, но путь отрезан.", fleer.Name())
}

func endMessage(c *Combat, reason Reason, winner, loser *domain.Entity) string {
	switch reason {
	case ReasonVictory:
		return fmt.Sprintf("%s повержен. Победа!", loser.Name())
	case ReasonDefeat:
		return fmt.Sprintf("%s одолел вас. Вы теряете сознание...", winner.Name())
	case ReasonFlee:
		if c.fledBy != nil {
			return fmt.Sprintf("%s сбегает с поля боя.", c.fledBy.Entity.Name())
		}
		return "Бой прерван бегством."
	}
	return "Бой прерван."
}
