package world

import (
	"time"

	"mud-server/internal/blueprint"
	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/internal/objects"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrVirtualTemplate = errors.New("template is virtual")
	ErrNoRoom          = errors.New("room not found")
)

// Атрибуты, которые пишет мир.
const (
	AttrSpawnTemplate = "spawn/template"
	AttrSpawnRoom     = "spawn/room"
	AttrRegen         = "regen"
	AttrExpReward     = "exp_reward"

	// AttrAggressive - NPC нападает на вошедших игроков.
	AttrAggressive = "aggressive"
	// AttrPeaceful - на NPC нельзя напасть.
	AttrPeaceful   = "peaceful"
)

// Config - параметры мира.
type Config struct {
	StartRoom     string
	RespawnRoom   string
	RespawnDelay  time.Duration
	CorpseTTL     time.Duration
	RegenInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		StartRoom:     "room/square",
		RespawnRoom:   "room/temple",
		RespawnDelay:  30 * time.Second,
		CorpseTTL:     2 * time.Minute,
		RegenInterval: 5 * time.Second,
	}
}

// World связывает сущности с реестрами и планировщиками.
// Все методы вызываются из игрового цикла.
type World struct {
	cfg        Config
	objects    *objects.Manager
	blueprints *blueprint.Registry
	heartbeats domain.HeartbeatScheduler
	callOuts   domain.CallOutScheduler
	sender     combat.Sender
	now        func() time.Time
}

type Deps struct {
	Objects    *objects.Manager
	Blueprints *blueprint.Registry
	Heartbeats domain.HeartbeatScheduler
	CallOuts   domain.CallOutScheduler
	Sender     combat.Sender
	// Now - источник времени. nil = time.Now.
	Now func() time.Time
}

func New(cfg Config, deps Deps) *World {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &World{
		cfg:        cfg,
		objects:    deps.Objects,
		blueprints: deps.Blueprints,
		heartbeats: deps.Heartbeats,
		callOuts:   deps.CallOuts,
		sender:     deps.Sender,
		now:        now,
	}
}

func (w *World) Config() Config                  { return w.cfg }
func (w *World) Objects() *objects.Manager       { return w.objects }
func (w *World) Blueprints() *blueprint.Registry { return w.blueprints }

// NewEntity создает сущность с подключенными планировщиками и регистрирует ее.
func (w *World) NewEntity(id string, opts ...domain.Option) (*domain.Entity, error) {
	all := append([]domain.Option{
		domain.WithHeartbeats(w.heartbeats),
		domain.WithCallOuts(w.callOuts),
	}, opts...)
	e := domain.NewEntity(id, all...)
	if err := w.objects.Register(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Find возвращает живую сущность по id.
func (w *World) Find(id string) (*domain.Entity, bool) {
	return w.objects.FindByID(id)
}

// Room возвращает комнату по id.
func (w *World) Room(id string) (*domain.Entity, bool) {
	e, ok := w.objects.FindByID(id)
	if !ok || e.Kind() != domain.KindRoom {
		return nil, false
	}
	return e, true
}

// Spawn создает экземпляр шаблона "tpl#N" и тихо помещает его в where.
func (w *World) Spawn(templateID string, where *domain.Entity) (*domain.Entity, error) {
	meta, ok := w.blueprints.Get(templateID)
	if !ok {
		return nil, errors.Wrapf(blueprint.ErrNotFound, "spawn %s", templateID)
	}
	if meta.Virtual {
		return nil, errors.Wrapf(ErrVirtualTemplate, "spawn %s", templateID)
	}

	e, err := w.NewEntity(w.objects.NextInstanceID(templateID),
		domain.WithKind(meta.Kind),
		domain.WithBlueprint(meta.Blueprint),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "spawn %s", templateID)
	}
	e.Set(AttrSpawnTemplate, templateID)
	if where != nil {
		e.Set(AttrSpawnRoom, where.ID())
		e.MoveQuiet(where)
	}

	if e.Kind() == domain.KindNPC {
		w.installNPCHooks(e)
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "world",
		"entity_id": e.ID(),
		"template":  templateID,
	}).Debug("Entity spawned")
	return e, nil
}

// installNPCHooks: восстановление здоровья на сердцебиении и полное лечение при сбросе.
func (w *World) installNPCHooks(e *domain.Entity) {
	e.OnHeartbeat = regenerate
	e.OnReset = func(e *domain.Entity) error {
		if !e.TempBool(combat.TempFighting) {
			e.Set(domain.AttrHP, e.GetFloat(domain.AttrMaxHP))
		}
		return nil
	}
	if e.GetFloat(AttrRegen) > 0 {
		if err := e.EnableHeartbeat(w.cfg.RegenInterval); err != nil {
			logger.Log.WithField("entity_id", e.ID()).WithError(err).Warn("Failed to enable regeneration")
		}
	}
}

// regenerate восстанавливает regen очков здоровья вне боя, не выше max_hp.
func regenerate(e *domain.Entity) error {
	if e.TempBool(combat.TempFighting) {
		return nil
	}
	hp, maxHP := e.GetFloat(domain.AttrHP), e.GetFloat(domain.AttrMaxHP)
	if hp <= 0 || hp >= maxHP {
		return nil
	}
	next := hp + e.GetFloat(AttrRegen)
	if next > maxHP {
		next = maxHP
	}
	e.Set(domain.AttrHP, next)
	return nil
}
