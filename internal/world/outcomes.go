package world

import (
	"fmt"
	"time"

	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	corpseTemplate = "item/corpse"
	tempCorpseTime = "corpse/created"
)

var _ combat.Outcomes = (*World)(nil)

// OnVictory: опыт победителю, труп с добычей и отложенное возрождение NPC.
func (w *World) OnVictory(c *combat.Combat, winner, loser *domain.Entity) {
	room := loser.Environment()

	if winner.IsPlayer() {
		reward := expReward(loser)
		winner.Add(domain.AttrExp, reward)
		w.Tell(winner, fmt.Sprintf("Вы получаете %d опыта.", int(reward)), "INFO")
	}
	w.BroadcastText(room, fmt.Sprintf("%s побеждает %s.", winner.Name(), loser.Name()), "COMBAT", winner)

	if loser.IsPlayer() {
		w.Revive(loser)
		return
	}

	w.leaveCorpse(loser, room)
	w.scheduleRespawn(loser)
	loser.Destroy()
}

// OnDefeat: проигравший игрок приходит в себя в храме.
func (w *World) OnDefeat(c *combat.Combat, winner, loser *domain.Entity) {
	w.BroadcastText(loser.Environment(), fmt.Sprintf("%s одолевает %s.", winner.Name(), loser.Name()), "COMBAT", loser)
	w.Revive(loser)
}

// OnFlee уводит сбежавшего игрока через первый доступный выход.
func (w *World) OnFlee(c *combat.Combat, fleer *domain.Entity) {
	if !fleer.IsPlayer() {
		return
	}
	from := fleer.Environment()
	for _, exit := range ExitNames(from) {
		moved, err := w.Go(fleer, exit)
		if err != nil || !moved {
			continue
		}
		w.BroadcastText(from, fmt.Sprintf("%s в панике убегает.", fleer.Name()), "INFO")
		w.SendLook(fleer)
		return
	}
	w.Tell(fleer, "Бежать некуда, но враг вас отпустил.", "INFO")
}

// Revive восстанавливает здоровье игрока и переносит его в комнату возрождения.
func (w *World) Revive(player *domain.Entity) {
	player.Set(domain.AttrHP, player.GetFloat(domain.AttrMaxHP))

	dest, ok := w.Room(w.cfg.RespawnRoom)
	if !ok {
		logger.Log.WithFields(logrus.Fields{
			"component": "world",
			"entity_id": player.ID(),
			"room_id":   w.cfg.RespawnRoom,
		}).Warn("Respawn room is missing, reviving in place")
		w.SendLook(player)
		return
	}

	from := player.Environment()
	w.BroadcastText(from, fmt.Sprintf("%s теряет сознание и исчезает.", player.Name()), "INFO", player)
	player.MoveQuiet(dest)
	w.BroadcastText(dest, fmt.Sprintf("%s появляется в сиянии алтаря.", player.Name()), "INFO", player)

	w.Tell(player, "Вы приходите в себя у алтаря.", "INFO")
	w.SendLook(player)

	logger.Log.WithFields(logrus.Fields{
		"component": "world",
		"entity_id": player.ID(),
		"room_id":   dest.ID(),
	}).Info("Player revived")
}

func expReward(loser *domain.Entity) float64 {
	if r := loser.GetFloat(AttrExpReward); r > 0 {
		return r
	}
	if lvl := loser.GetFloat(domain.AttrLevel); lvl > 0 {
		return lvl * 10
	}
	return 10
}

// leaveCorpse оставляет в комнате труп с инвентарем погибшего.
// Труп соглашается на уборку сборщиком мусора после CorpseTTL.
func (w *World) leaveCorpse(npc, room *domain.Entity) {
	if room == nil {
		return
	}
	corpse, err := w.NewEntity(w.objects.NextInstanceID(corpseTemplate), domain.WithKind(domain.KindItem))
	if err != nil {
		logger.Log.WithField("entity_id", npc.ID()).WithError(err).Error("Failed to create corpse")
		return
	}
	corpse.Set(domain.AttrName, "Останки: "+npc.Name())
	corpse.SetTemp(tempCorpseTime, w.now())
	corpse.OnCleanUp = func(e *domain.Entity) (bool, error) {
		created, ok := e.GetTemp(tempCorpseTime).(time.Time)
		return ok && w.now().Sub(created) >= w.cfg.CorpseTTL, nil
	}

	for _, item := range npc.Inventory() {
		item.MoveQuiet(corpse)
	}
	corpse.MoveQuiet(room)
}

// scheduleRespawn ставит возрождение NPC на таймер его родной комнаты.
func (w *World) scheduleRespawn(npc *domain.Entity) {
	tpl := npc.GetString(AttrSpawnTemplate)
	room, ok := w.Room(npc.GetString(AttrSpawnRoom))
	if tpl == "" || !ok {
		return
	}

	_, err := room.CallOut(func() {
		e, err := w.Spawn(tpl, room)
		if err != nil {
			logger.Log.WithField("template", tpl).WithError(err).Error("Respawn failed")
			return
		}
		w.BroadcastText(room, fmt.Sprintf("%s появляется.", e.Name()), "INFO")
	}, w.cfg.RespawnDelay)
	if err != nil {
		logger.Log.WithField("template", tpl).WithError(err).Warn("Failed to schedule respawn")
	}
}
