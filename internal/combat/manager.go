package combat

import (
	"time"

	"mud-server/internal/domain"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Временные атрибуты, которыми помечаются бойцы.
const (
	TempFighting = "combat/fighting"
	TempCombatID = "combat/id"
	tempRoot     = "combat"
)

var (
	ErrSameEntity      = errors.New("entity cannot fight itself")
	ErrAlreadyFighting = errors.New("entity is already in combat")
	ErrDead            = errors.New("entity is dead")
	ErrCombatNotFound  = errors.New("combat not found")
	ErrNotParticipant  = errors.New("entity is not a participant")
)

type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// Reason - причина окончания боя.
type Reason string

const (
	ReasonVictory Reason = "victory"
	ReasonDefeat  Reason = "defeat"
	ReasonFlee    Reason = "flee"
	ReasonAborted Reason = "aborted"
)

// Participant - боец в конкретном бою.
type Participant struct {
	Entity *domain.Entity
	Side   Side
	// Gauge после обработки тика всегда меньше MaxGauge.
	Gauge  float64
	Target *Participant
	// queued - прием, выбранный игроком на следующий ход. nil - обычная атака.
	queued *Action
}

// Combat - один бой 1 на 1.
type Combat struct {
	ID        string
	Player    *Participant
	Enemy     *Participant
	StartedAt time.Time
	Ticks     int

	actions []api.CombatAction
	fledBy  *Participant
}

// Participant возвращает бойца по сущности.
func (c *Combat) Participant(e *domain.Entity) (*Participant, bool) {
	switch e {
	case c.Player.Entity:
		return c.Player, true
	case c.Enemy.Entity:
		return c.Enemy, true
	}
	return nil, false
}

// Sender доставляет сообщение игроку. Реализует network.Broadcaster.
type Sender interface {
	SendTo(entityID string, msg api.ServerMessage)
}

// Outcomes - последствия боя, которые решает мир. Вызываются после того,
// как бой уже удален и метки сняты.
type Outcomes interface {
	OnVictory(c *Combat, winner, loser *domain.Entity)
	OnDefeat(c *Combat, winner, loser *domain.Entity)
	OnFlee(c *Combat, fleer *domain.Entity)
}

type nopOutcomes struct{}

func (nopOutcomes) OnVictory(*Combat, *domain.Entity, *domain.Entity) {}
func (nopOutcomes) OnDefeat(*Combat, *domain.Entity, *domain.Entity)  {}
func (nopOutcomes) OnFlee(*Combat, *domain.Entity)                    {}

// Manager ведет все активные бои и продвигает их общим тиком.
// Не потокобезопасен.
type Manager struct {
	cfg      Config
	rng      Roller
	damage   *DamageEngine
	sender   Sender
	outcomes Outcomes
	actions  map[string]Action
	now      func() time.Time

	combats map[string]*Combat
	order   []string
}

type Option func(m *Manager)

// WithOutcomes подключает обработчик последствий.
func WithOutcomes(o Outcomes) Option {
	return func(m *Manager) { m.outcomes = o }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithActions задает каталог приемов.
func WithActions(actions []Action) Option {
	return func(m *Manager) {
		m.actions = make(map[string]Action, len(actions))
		for _, a := range actions {
			m.actions[a.ID] = a
		}
	}
}

func NewManager(cfg Config, rng Roller, sender Sender, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "combat config")
	}
	m := &Manager{
		cfg:      cfg,
		rng:      rng,
		damage:   NewDamageEngine(rng),
		sender:   sender,
		outcomes: nopOutcomes{},
		now:      time.Now,
		combats:  make(map[string]*Combat),
	}
	WithActions(DefaultActions())(m)
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) Config() Config { return m.cfg }

// StartCombat начинает бой. Стороны определяются по типу сущности:
// игрок всегда на стороне player, если игрок только b - стороны меняются местами.
func (m *Manager) StartCombat(a, b *domain.Entity) (*Combat, error) {
	if a == b {
		return nil, errors.Wrapf(ErrSameEntity, "start combat %s", a.ID())
	}
	for _, e := range []*domain.Entity{a, b} {
		if e.IsDestroyed() || isDead(e) {
			return nil, errors.Wrapf(ErrDead, "start combat with %s", e.ID())
		}
		if m.IsInCombat(e) {
			return nil, errors.Wrapf(ErrAlreadyFighting, "start combat with %s", e.ID())
		}
	}
	if b.IsPlayer() && !a.IsPlayer() {
		a, b = b, a
	}

	c := &Combat{
		ID:        "combat_" + ulid.Make().String(),
		Player:    &Participant{Entity: a, Side: SidePlayer},
		Enemy:     &Participant{Entity: b, Side: SideEnemy},
		StartedAt: m.now(),
		actions:   make([]api.CombatAction, 0),
	}
	c.Player.Target = c.Enemy
	c.Enemy.Target = c.Player

	for _, p := range []*Participant{c.Player, c.Enemy} {
		p.Entity.SetTemp(TempFighting, true)
		p.Entity.SetTemp(TempCombatID, c.ID)
	}
	m.combats[c.ID] = c
	m.order = append(m.order, c.ID)

	m.send(c, api.ServerMessage{Type: api.MsgCombatStart, Payload: api.CombatStartPayload{
		CombatID: c.ID,
		Player:   m.fighterView(c.Player),
		Enemy:    m.fighterView(c.Enemy),
	}})

	logger.Log.WithFields(logrus.Fields{
		"component": "combat",
		"combat_id": c.ID,
		"player_id": a.ID(),
		"enemy_id":  b.ID(),
	}).Info("Combat started")
	return c, nil
}

// Tick продвигает все бои на один шаг в порядке их начала.
// Паника внутри одного боя завершает только его, с причиной aborted.
func (m *Manager) Tick() {
	ids := make([]string, len(m.order))
	copy(ids, m.order)

	for _, id := range ids {
		c, ok := m.combats[id]
		if !ok {
			continue
		}
		if err := m.safeStep(c); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "combat",
				"combat_id": id,
			}).WithError(err).Error("Combat step failed, aborting combat")
			m.EndCombat(id, ReasonAborted)
		}
	}
}

func (m *Manager) safeStep(c *Combat) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("combat panic: %v", r)
		}
	}()
	m.step(c)
	return nil
}

func (m *Manager) step(c *Combat) {
	if c.Player.Entity.IsDestroyed() || c.Enemy.Entity.IsDestroyed() {
		m.EndCombat(c.ID, ReasonAborted)
		return
	}
	// Здоровье могли обнулить вне боя: исход решается сразу, до атак.
	if isDead(c.Player.Entity) || isDead(c.Enemy.Entity) {
		if len(c.actions) > 0 {
			m.flush(c)
		}
		if isDead(c.Player.Entity) {
			m.EndCombat(c.ID, ReasonDefeat)
		} else {
			m.EndCombat(c.ID, ReasonVictory)
		}
		return
	}
	c.Ticks++

	for _, p := range []*Participant{c.Player, c.Enemy} {
		if isDead(p.Entity) {
			continue
		}
		p.Gauge += m.speed(p.Entity) * m.cfg.SpeedFactor
		for p.Gauge >= m.cfg.MaxGauge {
			p.Gauge -= m.cfg.MaxGauge
			m.resolveAttack(c, p)

			if isDead(p.Target.Entity) {
				m.flush(c)
				if p.Side == SidePlayer {
					m.EndCombat(c.ID, ReasonVictory)
				} else {
					m.EndCombat(c.ID, ReasonDefeat)
				}
				return
			}
		}
	}
	m.flush(c)
}

func (m *Manager) resolveAttack(c *Combat, p *Participant) {
	attacker, defender := p.Entity, p.Target.Entity
	att := Stats{Attack: attacker.GetFloat(domain.AttrAttack), Defense: attacker.GetFloat(domain.AttrDefense)}
	def := Stats{Attack: defender.GetFloat(domain.AttrAttack), Defense: defender.GetFloat(domain.AttrDefense)}

	action := p.queued
	p.queued = nil
	mismatch := action != nil && action.Weapon != "" && attacker.GetString(AttrWeaponType) != action.Weapon
	res := m.damage.CalculateWithAction(att, def, action, mismatch)

	hp := defender.Add(domain.AttrHP, -float64(res.Damage))
	if hp < 0 {
		defender.Set(domain.AttrHP, 0.0)
	}

	c.actions = append(c.actions, api.CombatAction{
		Side:        string(p.Side),
		Type:        "attack",
		Damage:      res.Damage,
		Crit:        res.Crit,
		Description: attackText(attacker, defender, action, res),
	})

	logger.Log.WithFields(logrus.Fields{
		"component":   "combat",
		"combat_id":   c.ID,
		"attacker_id": attacker.ID(),
		"target_id":   defender.ID(),
		"damage":      res.Damage,
		"hp_after":    defender.GetInt(domain.AttrHP),
	}).Debug("Attack resolved")
}

// QueueAction запоминает прием на следующий ход бойца.
func (m *Manager) QueueAction(e *domain.Entity, actionID string) error {
	c, ok := m.Combat(m.CombatID(e))
	if !ok {
		return errors.Wrapf(ErrCombatNotFound, "queue action for %s", e.ID())
	}
	action, ok := m.actions[actionID]
	if !ok {
		return errors.Errorf("unknown action %q", actionID)
	}
	p, _ := c.Participant(e)
	p.queued = &action
	return nil
}

// flush отправляет накопленные за тик записи и состояние сторон.
func (m *Manager) flush(c *Combat) {
	actions := c.actions
	c.actions = make([]api.CombatAction, 0)

	m.send(c, api.ServerMessage{Type: api.MsgCombatUpdate, Payload: api.CombatUpdatePayload{
		CombatID: c.ID,
		Actions:  actions,
		Player:   m.fighterState(c.Player),
		Enemy:    m.fighterState(c.Enemy),
	}})
}

// EndCombat завершает бой. Сначала уходит сообщение, затем синхронно снимаются
// метки и бой удаляется, и только после этого вызываются последствия.
func (m *Manager) EndCombat(id string, reason Reason) bool {
	c, ok := m.combats[id]
	if !ok {
		return false
	}

	winner, loser := m.sidesFor(c, reason)
	m.send(c, api.ServerMessage{Type: api.MsgCombatEnd, Payload: api.CombatEndPayload{
		CombatID: c.ID,
		Reason:   string(reason),
		Message:  endMessage(c, reason, winner, loser),
	}})

	for _, p := range []*Participant{c.Player, c.Enemy} {
		p.Entity.DelTemp(tempRoot)
	}
	delete(m.combats, id)
	for i, cur := range m.order {
		if cur == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "combat",
		"combat_id": id,
		"reason":    reason,
		"ticks":     c.Ticks,
	}).Info("Combat ended")

	m.applyOutcome(c, reason, winner, loser)
	return true
}

func (m *Manager) sidesFor(c *Combat, reason Reason) (winner, loser *domain.Entity) {
	switch reason {
	case ReasonVictory:
		return c.Player.Entity, c.Enemy.Entity
	case ReasonDefeat:
		return c.Enemy.Entity, c.Player.Entity
	}
	return nil, nil
}

func (m *Manager) applyOutcome(c *Combat, reason Reason, winner, loser *domain.Entity) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(logrus.Fields{
				"component": "combat",
				"combat_id": c.ID,
				"reason":    reason,
			}).Errorf("Combat outcome hook panicked: %v", r)
		}
	}()

	switch reason {
	case ReasonVictory:
		m.outcomes.OnVictory(c, winner, loser)
	case ReasonDefeat:
		if loser.IsPlayer() {
			m.outcomes.OnDefeat(c, winner, loser)
		}
	case ReasonFlee:
		if c.fledBy != nil {
			m.outcomes.OnFlee(c, c.fledBy.Entity)
		}
	}
}

// --- ЗАПРОСЫ ---

// IsInCombat проверяет, участвует ли сущность в активном бою.
func (m *Manager) IsInCombat(e *domain.Entity) bool {
	if !e.TempBool(TempFighting) {
		return false
	}
	_, ok := m.combats[e.TempString(TempCombatID)]
	return ok
}

// CombatID возвращает id боя сущности или "".
func (m *Manager) CombatID(e *domain.Entity) string {
	if !m.IsInCombat(e) {
		return ""
	}
	return e.TempString(TempCombatID)
}

func (m *Manager) Combat(id string) (*Combat, bool) {
	c, ok := m.combats[id]
	return c, ok
}

func (m *Manager) Count() int { return len(m.combats) }

// CombatView - снимок боя для отладки.
type CombatView struct {
	ID          string    `json:"id"`
	PlayerID    string    `json:"playerId"`
	EnemyID     string    `json:"enemyId"`
	PlayerGauge float64   `json:"playerGauge"`
	EnemyGauge  float64   `json:"enemyGauge"`
	Ticks       int       `json:"ticks"`
	StartedAt   time.Time `json:"startedAt"`
}

// Snapshot возвращает активные бои в порядке начала.
func (m *Manager) Snapshot() []CombatView {
	out := make([]CombatView, 0, len(m.order))
	for _, id := range m.order {
		c := m.combats[id]
		out = append(out, CombatView{
			ID:          c.ID,
			PlayerID:    c.Player.Entity.ID(),
			EnemyID:     c.Enemy.Entity.ID(),
			PlayerGauge: c.Player.Gauge,
			EnemyGauge:  c.Enemy.Gauge,
			Ticks:       c.Ticks,
			StartedAt:   c.StartedAt,
		})
	}
	return out
}

// --- ВСПОМОГАТЕЛЬНОЕ ---

func (m *Manager) send(c *Combat, msg api.ServerMessage) {
	if m.sender == nil {
		return
	}
	for _, p := range []*Participant{c.Player, c.Enemy} {
		if p.Entity.IsPlayer() {
			m.sender.SendTo(p.Entity.ID(), msg)
		}
	}
}

func (m *Manager) speed(e *domain.Entity) float64 {
	if v := e.GetFloat(domain.AttrSpeed); v > 0 {
		return v
	}
	return m.cfg.DefaultSpeed
}

func (m *Manager) gaugePercent(p *Participant) int {
	return int(p.Gauge / m.cfg.MaxGauge * 100)
}

func (m *Manager) fighterView(p *Participant) api.FighterView {
	return api.FighterView{
		ID:    p.Entity.ID(),
		Name:  p.Entity.Name(),
		Level: p.Entity.GetInt(domain.AttrLevel),
		HP:    p.Entity.GetInt(domain.AttrHP),
		MaxHP: p.Entity.GetInt(domain.AttrMaxHP),
		Gauge: m.gaugePercent(p),
	}
}

func (m *Manager) fighterState(p *Participant) api.FighterState {
	return api.FighterState{
		HP:    p.Entity.GetInt(domain.AttrHP),
		MaxHP: p.Entity.GetInt(domain.AttrMaxHP),
		Gauge: m.gaugePercent(p),
	}
}

func isDead(e *domain.Entity) bool {
	return e.GetFloat(domain.AttrHP) <= 0
}
