package engine

import (
	"context"
	"math/rand"
	"time"

	"mud-server/internal/blueprint"
	"mud-server/internal/callout"
	"mud-server/internal/combat"
	"mud-server/internal/engine/handlers"
	"mud-server/internal/engine/handlers/actions"
	"mud-server/internal/engine/handlers/admin"
	"mud-server/internal/heartbeat"
	"mud-server/internal/infrastructure/storage"
	"mud-server/internal/network"
	"mud-server/internal/objects"
	"mud-server/internal/world"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrStopped = errors.New("engine is stopped")

// InternalCommand - команда игрока для игрового цикла.
type InternalCommand struct {
	Action   ActionType
	EntityID string          // Кто выполняет
	Payload  json.RawMessage // Сырые данные (парсятся хендлером)
}

type joinResult struct {
	session Session
	err     error
}

type joinRequest struct {
	payload api.LoginPayload
	reply   chan joinResult
}

type disconnectRequest struct {
	entityID string
	conn     uint64
}

// Service владеет всем игровым состоянием. Состояние меняет только
// горутина Run; остальные общаются с ней через каналы.
type Service struct {
	cfg Config
	now func() time.Time

	Hub *network.Broadcaster

	objects    *objects.Manager
	blueprints *blueprint.Registry
	heartbeats *heartbeat.Manager
	callOuts   *callout.Queue
	combat     *combat.Manager
	world      *world.World
	store      *storage.Store // nil - без сохранения

	CommandChan    chan InternalCommand
	joinChan       chan joinRequest
	disconnectChan chan disconnectRequest
	inspectChan    chan func()
	stopped        chan struct{}

	handlers map[ActionType]handlers.HandlerFunc
	sessions *sessions
}

type Option func(s *Service)

// WithClock подменяет источник времени для таймеров и боя.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:            cfg,
		now:            time.Now,
		Hub:            network.NewBroadcaster(),
		objects:        objects.NewManager(),
		blueprints:     blueprint.NewRegistry(),
		CommandChan:    make(chan InternalCommand, 256),
		joinChan:       make(chan joinRequest),
		disconnectChan: make(chan disconnectRequest, 64),
		inspectChan:    make(chan func()),
		stopped:        make(chan struct{}),
		handlers:       make(map[ActionType]handlers.HandlerFunc),
		sessions:       newSessions(),
	}
	for _, opt := range opts {
		opt(s)
	}

	hb, err := heartbeat.NewManager(cfg.HeartbeatPeriod)
	if err != nil {
		return nil, err
	}
	s.heartbeats = hb
	s.callOuts = callout.NewQueue(s.now)

	s.world = world.New(world.DefaultConfig(), world.Deps{
		Objects:    s.objects,
		Blueprints: s.blueprints,
		Heartbeats: s.heartbeats,
		CallOuts:   s.callOuts,
		Sender:     s.Hub,
		Now:        s.now,
	})

	rng := rand.New(rand.NewSource(cfg.Seed))
	s.combat, err = combat.NewManager(combat.DefaultConfig(), rng, s.Hub,
		combat.WithOutcomes(s.world),
		combat.WithClock(s.now),
	)
	if err != nil {
		return nil, err
	}

	if cfg.SaveDir != "" {
		if s.store, err = storage.NewStore(cfg.SaveDir); err != nil {
			return nil, err
		}
	}

	if err := s.buildWorld(); err != nil {
		return nil, errors.Wrap(err, "build world")
	}
	s.registerHandlers()
	return s, nil
}

func (s *Service) registerHandlers() {
	s.handlers[ActionLook] = handlers.WithEmptyPayload(actions.HandleLook)
	s.handlers[ActionGo] = handlers.WithPayload(actions.HandleGo)
	s.handlers[ActionAttack] = handlers.WithPayload(actions.HandleAttack)
	s.handlers[ActionFlee] = handlers.WithEmptyPayload(actions.HandleFlee)
	s.handlers[ActionSay] = handlers.WithPayload(actions.HandleSay)

	if s.cfg.Cheats {
		logger.Log.Warn("Cheats are enabled")
		s.handlers[ActionTeleport] = handlers.WithPayload(admin.HandleTeleport)
		s.handlers[ActionSpawn] = handlers.WithPayload(admin.HandleSpawn)
		s.handlers[ActionHeal] = handlers.WithEmptyPayload(admin.HandleHeal)
		s.handlers[ActionKill] = handlers.WithPayload(admin.HandleKill)
		s.handlers[ActionSweep] = handlers.WithEmptyPayload(admin.HandleSweep)
	}
}

func (s *Service) Config() Config { return s.cfg }

// --- GAME LOOP ---

// Run крутит игровой цикл до отмены ctx. При выходе сохраняет игроков.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)

	heartbeats := time.NewTicker(s.cfg.HeartbeatPeriod)
	combatTicks := time.NewTicker(s.cfg.CombatTick)
	callOuts := time.NewTicker(s.cfg.CallOutResolution)
	gc := time.NewTicker(s.cfg.GCInterval)
	defer func() {
		heartbeats.Stop()
		combatTicks.Stop()
		callOuts.Stop()
		gc.Stop()
	}()

	log := logger.Component("engine")
	log.WithFields(logrus.Fields{
		"heartbeat_period": s.cfg.HeartbeatPeriod,
		"combat_tick":      s.cfg.CombatTick,
		"gc_interval":      s.cfg.GCInterval,
	}).Info("Game loop started")

	for {
		select {
		case <-ctx.Done():
			s.Hub.Broadcast(s.world.LogMessage("Сервер останавливается. До встречи!", "INFO"))
			saved := s.saveAll()
			log.WithField("saved", saved).Info("Game loop stopped")
			return nil

		case <-heartbeats.C:
			s.heartbeats.Tick()

		case <-combatTicks.C:
			s.combat.Tick()

		case <-callOuts.C:
			s.callOuts.RunDue(s.now())

		case <-gc.C:
			s.objects.Sweep()

		case cmd := <-s.CommandChan:
			s.executeCommand(cmd)

		case req := <-s.joinChan:
			sess, err := s.join(req.payload)
			req.reply <- joinResult{session: sess, err: err}

		case req := <-s.disconnectChan:
			s.disconnect(req.entityID, req.conn)

		case fn := <-s.inspectChan:
			fn()
		}
	}
}

// ProcessCommand принимает команду от внешнего мира (WebSocket).
// entityID уже подтвержден рукопожатием клиента.
func (s *Service) ProcessCommand(entityID string, cmd api.ClientCommand) error {
	action := ParseAction(cmd.Action)
	if action == ActionUnknown {
		logger.Log.WithFields(logrus.Fields{
			"entity_id": entityID,
			"action":    cmd.Action,
		}).Debug("Unknown action")
	}

	select {
	case <-s.stopped:
		return ErrStopped
	default:
	}

	select {
	case s.CommandChan <- InternalCommand{Action: action, EntityID: entityID, Payload: cmd.Payload}:
		return nil
	case <-s.stopped:
		return ErrStopped
	}
}

// Login передает рукопожатие в игровой цикл и ждет персонажа.
func (s *Service) Login(ctx context.Context, p api.LoginPayload) (Session, error) {
	req := joinRequest{payload: p, reply: make(chan joinResult, 1)}
	select {
	case s.joinChan <- req:
	case <-ctx.Done():
		return Session{}, ctx.Err()
	case <-s.stopped:
		return Session{}, ErrStopped
	}

	select {
	case res := <-req.reply:
		return res.session, res.err
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

// Disconnect сообщает о разрыве соединения conn.
func (s *Service) Disconnect(entityID string, conn uint64) {
	select {
	case s.disconnectChan <- disconnectRequest{entityID: entityID, conn: conn}:
	case <-s.stopped:
	}
}

// Inspect выполняет fn внутри игрового цикла и ждет завершения.
// Для debug-эндпоинтов: fn может читать любое состояние.
func (s *Service) Inspect(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case s.inspectChan <- wrapped:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// executeCommand выполняет хендлер и отправляет игроку результат.
func (s *Service) executeCommand(cmd InternalCommand) {
	actor, ok := s.world.Find(cmd.EntityID)
	if !ok || !actor.IsPlayer() {
		logger.Log.WithField("entity_id", cmd.EntityID).Warn("Command from unknown entity")
		return
	}

	handler, ok := s.handlers[cmd.Action]
	if !ok {
		s.world.Tell(actor, "Неизвестная команда.", "ERROR")
		return
	}

	ctx := handlers.Context{
		World:  s.world,
		Combat: s.combat,
		Actor:  actor,
	}

	result, err := safeHandle(handler, ctx, cmd.Payload)
	if err != nil {
		log := logger.Log.WithFields(logrus.Fields{
			"component": "engine",
			"entity_id": actor.ID(),
			"action":    cmd.Action.String(),
		}).WithError(err)
		if errors.Is(err, handlers.ErrInvalidPayload) {
			log.Debug("Command rejected")
			s.world.Tell(actor, "Неверный формат команды.", "ERROR")
			return
		}
		log.Error("Command failed")
		s.world.Tell(actor, "Что-то пошло не так.", "ERROR")
		return
	}

	if result.Msg != "" {
		msgType := result.MsgType
		if msgType == "" {
			msgType = "INFO"
		}
		s.world.Tell(actor, result.Msg, msgType)
	}
}

func safeHandle(h handlers.HandlerFunc, ctx handlers.Context, payload json.RawMessage) (res handlers.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, payload)
}
