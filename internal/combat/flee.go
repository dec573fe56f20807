package combat

import (
	"mud-server/internal/domain"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FleeChance = clamp(base + (fleerSpeed - targetSpeed) * factor, min, max).
func (c Config) FleeChance(fleerSpeed, targetSpeed float64) float64 {
	chance := c.FleeBaseChance + (fleerSpeed-targetSpeed)*c.FleeSpeedFactor
	if chance < c.FleeMinChance {
		return c.FleeMinChance
	}
	if chance > c.FleeMaxChance {
		return c.FleeMaxChance
	}
	return chance
}

// AttemptFlee пытается вывести fleer из боя.
// Успех завершает бой с причиной flee. Неудача обнуляет шкалу беглеца
// (он теряет следующий ход) и отправляет запись flee_failed; бой продолжается.
func (m *Manager) AttemptFlee(id string, fleer *domain.Entity) (bool, error) {
	c, ok := m.combats[id]
	if !ok {
		return false, errors.Wrapf(ErrCombatNotFound, "flee from %s", id)
	}
	p, ok := c.Participant(fleer)
	if !ok {
		return false, errors.Wrapf(ErrNotParticipant, "%s in %s", fleer.ID(), id)
	}

	chance := m.cfg.FleeChance(m.speed(p.Entity), m.speed(p.Target.Entity))
	roll := m.rng.Float64()

	log := logger.Log.WithFields(logrus.Fields{
		"component": "combat",
		"combat_id": id,
		"fleer_id":  fleer.ID(),
		"chance":    chance,
		"roll":      roll,
	})

	if roll < chance {
		log.Info("Flee succeeded")
		c.fledBy = p
		m.EndCombat(id, ReasonFlee)
		return true, nil
	}

	log.Debug("Flee failed")
	p.Gauge = 0
	c.actions = append(c.actions, api.CombatAction{
		Side:        string(p.Side),
		Type:        "flee_failed",
		Description: fleeFailedText(fleer),
	})
	m.flush(c)
	return false, nil
}
