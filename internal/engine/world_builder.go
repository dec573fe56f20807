package engine

import (
	"fmt"
	"time"

	"mud-server/internal/blueprint"
	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/internal/world"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	PlayerTemplate = "player/base"
	forestPass     = "forest"
	forestPassTTL  = 10 * time.Minute
)

var npcBase = map[string]any{
	domain.AttrLevel:   1,
	domain.AttrHP:      20.0,
	domain.AttrMaxHP:   20.0,
	domain.AttrAttack:  6.0,
	domain.AttrDefense: 3.0,
	domain.AttrSpeed:   8.0,
	world.AttrRegen:    1.0,
}

// derive накладывает overrides на базовый шаблон.
func derive(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func defaultBlueprints() []blueprint.Meta {
	return []blueprint.Meta{
		{
			ID: PlayerTemplate, Name: "Игрок", Kind: domain.KindPlayer, Virtual: true,
			Blueprint: domain.NewBlueprint(PlayerTemplate, map[string]any{
				domain.AttrName:    "Странник",
				domain.AttrLevel:   1,
				domain.AttrHP:      100.0,
				domain.AttrMaxHP:   100.0,
				domain.AttrAttack:  12.0,
				domain.AttrDefense: 6.0,
				domain.AttrSpeed:   10.0,
			}),
		},
		{
			ID: "npc/base", Name: "NPC", Kind: domain.KindNPC, Virtual: true,
			Blueprint: domain.NewBlueprint("npc/base", npcBase),
		},
		{
			ID: "npc/goblin", Name: "Гоблин", Kind: domain.KindNPC, Parent: "npc/base",
			Blueprint: domain.NewBlueprint("npc/goblin", derive(npcBase, map[string]any{
				domain.AttrName:    "Гоблин",
				domain.AttrLevel:   2,
				domain.AttrHP:      30.0,
				domain.AttrMaxHP:   30.0,
				domain.AttrAttack:  9.0,
				domain.AttrDefense: 4.0,
				domain.AttrSpeed:   12.0,
				world.AttrRegen:    2.0,
			})),
		},
		{
			ID: "npc/orc", Name: "Орк", Kind: domain.KindNPC, Parent: "npc/base",
			Blueprint: domain.NewBlueprint("npc/orc", derive(npcBase, map[string]any{
				domain.AttrName:      "Орк",
				domain.AttrLevel:     4,
				domain.AttrHP:        60.0,
				domain.AttrMaxHP:     60.0,
				domain.AttrAttack:    16.0,
				domain.AttrDefense:   9.0,
				domain.AttrSpeed:     7.0,
				world.AttrRegen:      3.0,
				world.AttrExpReward:  60.0,
				world.AttrAggressive: true,
			})),
		},
		{
			ID: "npc/innkeeper", Name: "Трактирщик", Kind: domain.KindNPC, Parent: "npc/base",
			Blueprint: domain.NewBlueprint("npc/innkeeper", derive(npcBase, map[string]any{
				domain.AttrName:    "Трактирщик Борис",
				domain.AttrHP:      80.0,
				domain.AttrMaxHP:   80.0,
				world.AttrPeaceful: true,
			})),
		},
		{ID: "item/corpse", Name: "Останки", Kind: domain.KindItem, Virtual: true},
	}
}

type roomDef struct {
	id, name, desc string
	exits          map[string]string
}

var defaultRooms = []roomDef{
	{"room/square", "Площадь", "Шумная рыночная площадь. Отсюда видны ворота, храм и таверна.",
		map[string]string{"north": "room/gate", "east": "room/temple", "west": "room/tavern"}},
	{"room/temple", "Храм", "Прохладный храм. У алтаря приходят в себя павшие.",
		map[string]string{"west": "room/square"}},
	{"room/tavern", "Таверна", "Пахнет элем и жареным мясом.",
		map[string]string{"east": "room/square"}},
	{"room/gate", "Городские ворота", "Стражник лениво опирается на алебарду. На севере темнеет лес.",
		map[string]string{"south": "room/square", "north": "room/forest"}},
	{"room/forest", "Лес", "Густой лес. Между деревьями мелькают тени.",
		map[string]string{"south": "room/gate"}},
}

var defaultSpawns = []struct{ template, room string }{
	{"npc/innkeeper", "room/tavern"},
	{"npc/goblin", "room/gate"},
	{"npc/orc", "room/forest"},
}

// buildWorld заполняет каталог шаблонов, создает комнаты и стартовых NPC.
func (s *Service) buildWorld() error {
	for _, meta := range defaultBlueprints() {
		if err := s.blueprints.Register(meta); err != nil {
			return err
		}
	}

	for _, def := range defaultRooms {
		room, err := s.world.NewRoom(def.id, def.name, def.desc, def.exits)
		if err != nil {
			return errors.Wrapf(err, "room %s", def.id)
		}
		s.installAggression(room)
	}

	forest, _ := s.world.Room("room/forest")
	s.world.RequirePass(forest, forestPass, "Стражник: «Без пропуска из таверны в лес не пущу.»")

	for _, sp := range defaultSpawns {
		room, ok := s.world.Room(sp.room)
		if !ok {
			return errors.Wrapf(world.ErrNoRoom, "spawn %s", sp.template)
		}
		npc, err := s.world.Spawn(sp.template, room)
		if err != nil {
			return err
		}
		if sp.template == "npc/innkeeper" {
			s.installInnkeeper(npc)
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"component":  "engine",
		"rooms":      len(defaultRooms),
		"blueprints": s.blueprints.Count(),
		"objects":    s.objects.Count(),
	}).Info("World built")
	return nil
}

// installInnkeeper: трактирщик выдает пропуск в лес каждому вошедшему игроку.
func (s *Service) installInnkeeper(npc *domain.Entity) {
	npc.On(domain.EventEncounter, func(ev *domain.Event) {
		p := ev.Actor
		if p == nil || !p.IsPlayer() {
			return
		}
		if err := s.world.GrantPass(p, forestPass, forestPassTTL); err != nil {
			logger.Log.WithField("entity_id", p.ID()).WithError(err).Warn("Failed to grant pass")
			return
		}
		s.world.Tell(p, fmt.Sprintf("%s протягивает вам пропуск в лес.", npc.Name()), "SPEECH")
	})
}

// installAggression: агрессивный NPC нападает на вошедшего в комнату игрока.
func (s *Service) installAggression(room *domain.Entity) {
	room.On(domain.EventPostReceive, func(ev *domain.Event) {
		p := ev.Actor
		if p == nil || !p.IsPlayer() || s.combat.IsInCombat(p) {
			return
		}
		npc := room.FindInInventory(func(e *domain.Entity) bool {
			return e.Kind() == domain.KindNPC && e.GetBool(world.AttrAggressive) && !s.combat.IsInCombat(e)
		})
		if npc == nil {
			return
		}
		if _, err := s.combat.StartCombat(p, npc); err != nil {
			if !errors.Is(err, combat.ErrDead) {
				logger.Log.WithField("entity_id", npc.ID()).WithError(err).Warn("Aggro failed")
			}
			return
		}
		s.world.BroadcastText(room, fmt.Sprintf("%s с ревом бросается на %s!", npc.Name(), p.Name()), "COMBAT")
	})
}
