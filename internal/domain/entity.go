package domain

import (
	"time"

	"mud-server/internal/callout"
	"mud-server/internal/heartbeat"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Kind - тип сущности. По нему, например, бой определяет стороны.
type Kind string

const (
	KindObject Kind = "object"
	KindPlayer Kind = "player"
	KindNPC    Kind = "npc"
	KindRoom   Kind = "room"
	KindItem   Kind = "item"
)

var (
	ErrDestroyed   = errors.New("entity is destroyed")
	ErrNoScheduler = errors.New("entity has no scheduler attached")
)

// HeartbeatScheduler - общий мультиплексор сердцебиений (heartbeat.Manager).
type HeartbeatScheduler interface {
	Register(s heartbeat.Subject, interval time.Duration) error
	UpdateInterval(s heartbeat.Subject, interval time.Duration) error
	Unregister(s heartbeat.Subject)
}

// CallOutScheduler - очередь одноразовых отложенных вызовов (callout.Queue).
type CallOutScheduler interface {
	Schedule(delay time.Duration, fn func()) callout.ID
	Cancel(id callout.ID) bool
}

// HookFunc - необязательный пользовательский хук (heartbeat, reset).
type HookFunc func(e *Entity) error

// ConsentFunc спрашивает сущность, согласна ли она на уничтожение при сборке мусора.
type ConsentFunc func(e *Entity) (bool, error)

// Entity - игровой объект: атрибуты, место в дереве вложенности, события и таймеры.
type Entity struct {
	id        string
	kind      Kind
	blueprint *Blueprint

	dbase map[string]any // сохраняемые атрибуты
	temp  map[string]any // только на сессию

	environment *Entity
	inventory   []*Entity

	destroyed  bool
	destroying bool
	moving     bool // защита от повторного MoveTo во время перемещения

	heartbeats        HeartbeatScheduler
	heartbeatInterval time.Duration
	callOuts          CallOutScheduler
	pending           map[callout.ID]struct{}

	listeners    map[string][]subscription
	nextListener ListenerID

	// Хуки. Любой может быть nil.
	OnHeartbeat HookFunc
	OnReset     HookFunc
	OnCleanUp   ConsentFunc
}

// Option настраивает сущность при создании.
type Option func(e *Entity)

// WithKind задает тип сущности.
func WithKind(k Kind) Option {
	return func(e *Entity) { e.kind = k }
}

// WithBlueprint подключает чертеж для чтения значений по умолчанию.
func WithBlueprint(b *Blueprint) Option {
	return func(e *Entity) { e.blueprint = b }
}

// WithHeartbeats подключает общий планировщик сердцебиений.
func WithHeartbeats(h HeartbeatScheduler) Option {
	return func(e *Entity) { e.heartbeats = h }
}

// WithCallOuts подключает очередь отложенных вызовов.
func WithCallOuts(c CallOutScheduler) Option {
	return func(e *Entity) { e.callOuts = c }
}

// WithDbase задает начальные постоянные атрибуты.
func WithDbase(data map[string]any) Option {
	return func(e *Entity) { e.dbase = cloneMap(data) }
}

// NewEntity создает сущность с путеподобным id ("room/square", "npc/goblin#3").
func NewEntity(id string, opts ...Option) *Entity {
	e := &Entity{
		id:        id,
		kind:      KindObject,
		dbase:     make(map[string]any),
		temp:      make(map[string]any),
		pending:   make(map[callout.ID]struct{}),
		listeners: make(map[string][]subscription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Entity) ID() string            { return e.id }
func (e *Entity) Kind() Kind            { return e.kind }
func (e *Entity) IsPlayer() bool        { return e.kind == KindPlayer }
func (e *Entity) Blueprint() *Blueprint { return e.blueprint }
func (e *Entity) IsDestroyed() bool     { return e.destroyed }

// Name возвращает атрибут name, а если его нет - id.
func (e *Entity) Name() string {
	if n := e.GetString(AttrName); n != "" {
		return n
	}
	return e.id
}

// Destroy уничтожает сущность. Повторный вызов ничего не делает.
//
// Порядок: выключить сердцебиение, отменить отложенные вызовы, переложить
// прямых потомков в бывшее окружение (или оставить без окружения, если его нет),
// отцепиться самой, разослать "destroyed" и снять всех подписчиков.
func (e *Entity) Destroy() {
	if e.destroyed || e.destroying {
		return
	}
	e.destroying = true

	e.DisableHeartbeat()
	e.ClearCallOuts()

	env := e.environment
	for _, child := range e.Inventory() {
		child.relink(env)
	}
	e.relink(nil)

	e.Emit(&Event{Name: EventDestroyed, Actor: e, From: env})

	e.destroyed = true
	e.destroying = false
	e.listeners = make(map[string][]subscription)

	logger.Log.WithFields(logrus.Fields{
		"component": "entity",
		"entity_id": e.id,
	}).Debug("Entity destroyed")
}
