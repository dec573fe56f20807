package agent

import (
	"context"
	"math/rand"
	"time"

	"mud-server/internal/engine"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Bot представляет собой "Игрока-компьютера" (Headless Agent).
// Он входит в мир через тот же Login, что и WebSocket-клиент, слушает
// свой канал в хабе и раз в Think решает, какую команду отправить.
//
// Жизненный цикл:
//  1. Run -> Login, регистрация в хабе, первый LOOK.
//  2. observe -> Каждое сообщение сервера обновляет локальную картину (комната, бой, HP).
//  3. decide -> По таймеру выбирает одну команду: бежать, атаковать, идти дальше.
//  4. Выход по ctx или при вытеснении -> Disconnect.
type Bot struct {
	Name    string
	Service *engine.Service
	// Think - пауза между решениями.
	Think time.Duration

	rng     *rand.Rand
	session engine.Session
	log     *logrus.Entry

	room      *api.RoomView // nil - комнату нужно осмотреть
	inCombat  bool
	hp, maxHP int
	// lastTarget и refused: цели, на которые сервер не дал напасть.
	lastTarget string
	refused    map[string]bool
}

// Command - решение бота.
type Command struct {
	Action  string
	Payload any
}

func NewBot(name string, service *engine.Service, think time.Duration, seed int64) *Bot {
	return &Bot{
		Name:    name,
		Service: service,
		Think:   think,
		rng:     rand.New(rand.NewSource(seed)),
		refused: make(map[string]bool),
		log:     logger.Component("agent").WithField("bot", name),
	}
}

// Run запускает цикл жизни бота. Должен быть запущен в горутине.
func (b *Bot) Run(ctx context.Context) error {
	sess, err := b.Service.Login(ctx, api.LoginPayload{Name: b.Name})
	if err != nil {
		return errors.Wrap(err, "bot login")
	}
	b.session = sess
	b.log = b.log.WithField("entity_id", sess.EntityID)

	inbox := b.Service.Hub.Register(sess.EntityID)
	defer func() {
		b.Service.Hub.Unregister(sess.EntityID, inbox)
		b.Service.Disconnect(sess.EntityID, sess.Conn)
		b.log.Info("Bot shut down")
	}()
	b.log.Info("Bot joined")

	ticker := time.NewTicker(b.Think)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-inbox:
			if !ok {
				// Нас вытеснили повторным входом.
				return nil
			}
			b.observe(msg)
		case <-ticker.C:
			if cmd, ok := b.decide(); ok {
				if err := b.send(cmd); err != nil {
					if errors.Is(err, engine.ErrStopped) {
						return nil
					}
					b.log.WithError(err).Warn("Failed to send command")
				}
			}
		}
	}
}

// observe обновляет локальную картину мира по сообщению сервера.
func (b *Bot) observe(msg api.ServerMessage) {
	switch p := msg.Payload.(type) {
	case api.RoomView:
		b.room = &p
	case api.CombatStartPayload:
		b.inCombat = true
		b.hp, b.maxHP = p.Player.HP, p.Player.MaxHP
	case api.CombatUpdatePayload:
		b.hp, b.maxHP = p.Player.HP, p.Player.MaxHP
	case api.CombatEndPayload:
		b.inCombat = false
		b.room = nil
		b.log.WithField("reason", p.Reason).Debug("Combat finished")
	case api.LogEntry:
		if p.Type == "ERROR" && b.lastTarget != "" {
			b.refused[b.lastTarget] = true
			b.lastTarget = ""
		}
	}
}

// decide - это мозг бота.
func (b *Bot) decide() (Command, bool) {
	b.lastTarget = ""
	if b.inCombat {
		if b.maxHP > 0 && b.hp*4 < b.maxHP {
			return Command{Action: "FLEE"}, true
		}
		return Command{}, false
	}

	if b.room == nil {
		return Command{Action: "LOOK"}, true
	}

	for _, o := range b.room.Occupants {
		if o.Kind == "npc" && !o.Fighting && !b.refused[o.ID] {
			b.lastTarget = o.ID
			return Command{Action: "ATTACK", Payload: api.AttackPayload{TargetID: o.ID}}, true
		}
	}

	if len(b.room.Exits) == 0 {
		return Command{}, false
	}
	exit := b.room.Exits[b.rng.Intn(len(b.room.Exits))]
	return Command{Action: "GO", Payload: api.ExitPayload{Exit: exit}}, true
}

// --- Хелперы для отправки команд на сервер ---

func (b *Bot) send(cmd Command) error {
	var raw json.RawMessage
	if cmd.Payload != nil {
		data, err := json.Marshal(cmd.Payload)
		if err != nil {
			return errors.Wrap(err, "marshal payload")
		}
		raw = data
	}
	b.log.WithField("action", cmd.Action).Debug("Bot acts")
	return b.Service.ProcessCommand(b.session.EntityID, api.ClientCommand{Action: cmd.Action, Payload: raw})
}
