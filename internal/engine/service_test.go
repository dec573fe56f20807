package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"mud-server/internal/domain"
	"mud-server/internal/world"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	logger.InitWithOutput(io.Discard)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Port:              "0",
		HeartbeatPeriod:   time.Second,
		CombatTick:        time.Second,
		CallOutResolution: 10 * time.Millisecond,
		GCInterval:        time.Minute,
		SaveDir:           t.TempDir(),
		Seed:              42,
	}
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, err := NewService(cfg, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

// client - игрок с подпиской на свои сообщения.
type client struct {
	t    *testing.T
	s    *Service
	sess Session
	ch   chan api.ServerMessage
}

func login(t *testing.T, s *Service, p api.LoginPayload) *client {
	t.Helper()
	sess, err := s.join(p)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return &client{t: t, s: s, sess: sess, ch: s.Hub.Register(sess.EntityID)}
}

func (c *client) entity() *domain.Entity {
	c.t.Helper()
	e, ok := c.s.world.Find(c.sess.EntityID)
	if !ok {
		c.t.Fatalf("player %s is not in the world", c.sess.EntityID)
	}
	return e
}

func (c *client) do(action ActionType, payload any) {
	c.t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatal(err)
	}
	c.s.executeCommand(InternalCommand{Action: action, EntityID: c.sess.EntityID, Payload: raw})
}

// drain забирает все накопленные сообщения.
func (c *client) drain() []api.ServerMessage { return drainChan(c.ch) }

func drainChan(ch chan api.ServerMessage) []api.ServerMessage {
	var out []api.ServerMessage
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func texts(msgs []api.ServerMessage) []string {
	var out []string
	for _, m := range msgs {
		if entry, ok := m.Payload.(api.LogEntry); ok {
			out = append(out, entry.Text)
		}
	}
	return out
}

func hasText(msgs []api.ServerMessage, substr string) bool {
	for _, txt := range texts(msgs) {
		if strings.Contains(txt, substr) {
			return true
		}
	}
	return false
}

func (c *client) room() string {
	c.t.Helper()
	env := c.entity().Environment()
	if env == nil {
		return ""
	}
	return env.ID()
}

func TestNewServiceBuildsWorld(t *testing.T) {
	s := newTestService(t, testConfig(t))

	for _, id := range []string{"room/square", "room/temple", "room/tavern", "room/gate", "room/forest"} {
		if _, ok := s.world.Room(id); !ok {
			t.Errorf("room %s missing", id)
		}
	}
	if !s.blueprints.Has("npc/orc") || s.blueprints.Instantiable(PlayerTemplate) {
		t.Error("blueprint catalogue is incomplete")
	}
	forest, _ := s.world.Room("room/forest")
	if forest.FindInInventory(func(e *domain.Entity) bool { return e.GetBool(world.AttrAggressive) }) == nil {
		t.Error("forest must host an aggressive NPC")
	}
}

func TestJoinNewPlayer(t *testing.T) {
	s := newTestService(t, testConfig(t))
	c := login(t, s, api.LoginPayload{Name: "Анна"})

	if _, err := uuid.Parse(c.sess.Token); err != nil {
		t.Errorf("token %q is not a UUID", c.sess.Token)
	}
	if !strings.HasPrefix(c.sess.EntityID, "player/") || strings.Contains(c.sess.EntityID, c.sess.Token) {
		t.Errorf("entity id %q must not expose the token", c.sess.EntityID)
	}
	p := c.entity()
	if p.Name() != "Анна" || c.room() != "room/square" {
		t.Errorf("name=%q room=%q", p.Name(), c.room())
	}
	if p.GetFloat(domain.AttrHP) != 100 {
		t.Errorf("hp = %v, want blueprint default", p.GetFloat(domain.AttrHP))
	}
	if w := c.sess.Welcome().Payload.(api.WelcomePayload); w.Token != c.sess.Token {
		t.Errorf("welcome = %+v", w)
	}
}

func TestLookAndGo(t *testing.T) {
	s := newTestService(t, testConfig(t))
	c := login(t, s, api.LoginPayload{Name: "Анна"})
	bob := login(t, s, api.LoginPayload{Name: "Боб"})
	bob.drain()
	c.drain()

	c.do(ActionLook, nil)
	msgs := c.drain()
	if len(msgs) != 1 || msgs[0].Type != api.MsgRoom {
		t.Fatalf("look = %+v", msgs)
	}
	if view := msgs[0].Payload.(api.RoomView); view.ID != "room/square" || len(view.Occupants) != 1 {
		t.Errorf("room view = %+v", view)
	}

	c.do(ActionGo, api.ExitPayload{Exit: "north"})
	if c.room() != "room/gate" {
		t.Fatalf("room = %s, want room/gate", c.room())
	}
	if !hasText(bob.drain(), "Анна уходит") {
		t.Error("witnesses must see the departure")
	}

	c.drain()
	c.do(ActionGo, api.ExitPayload{Exit: "north"})
	if c.room() != "room/gate" {
		t.Error("forest must refuse players without a pass")
	}
	if !hasText(c.drain(), "Без пропуска") {
		t.Error("refusal must be explained")
	}

	c.do(ActionGo, api.ExitPayload{Exit: "up"})
	if !hasText(c.drain(), "Туда не пройти") {
		t.Error("unknown exit must be reported")
	}
}

func TestInnkeeperPassAndAggro(t *testing.T) {
	s := newTestService(t, testConfig(t))
	c := login(t, s, api.LoginPayload{Name: "Анна"})

	c.do(ActionGo, api.ExitPayload{Exit: "west"})
	if !world.HasPass(c.entity(), "forest") {
		t.Fatal("innkeeper must grant the forest pass on encounter")
	}
	if !hasText(c.drain(), "пропуск") {
		t.Error("pass handover must be announced")
	}

	for _, exit := range []string{"east", "north", "north"} {
		c.do(ActionGo, api.ExitPayload{Exit: exit})
	}
	if c.room() != "room/forest" {
		t.Fatalf("room = %s, want room/forest", c.room())
	}
	if !s.combat.IsInCombat(c.entity()) {
		t.Fatal("aggressive NPC must attack on arrival")
	}
	var started bool
	for _, m := range c.drain() {
		started = started || m.Type == api.MsgCombatStart
	}
	if !started {
		t.Error("combat-start not sent")
	}

	c.do(ActionGo, api.ExitPayload{Exit: "south"})
	if c.room() != "room/forest" || !hasText(c.drain(), "Вы в бою") {
		t.Error("walking away from a fight must be refused")
	}

	c.do(ActionAttack, api.AttackPayload{Skill: "power_strike"})
	if !hasText(c.drain(), "готовите прием") {
		t.Error("skill must be queued")
	}

	s.disconnect(c.sess.EntityID, c.sess.Conn)
	if s.combat.Count() != 0 {
		t.Error("disconnect must abort the fight")
	}
}

func TestAttackRules(t *testing.T) {
	s := newTestService(t, testConfig(t))
	c := login(t, s, api.LoginPayload{Name: "Анна"})
	c.do(ActionGo, api.ExitPayload{Exit: "west"})
	c.drain()

	c.do(ActionAttack, api.AttackPayload{TargetID: "npc/innkeeper#1"})
	if !hasText(c.drain(), "не желает драться") || s.combat.Count() != 0 {
		t.Error("peaceful NPC must not be attackable")
	}

	c.do(ActionAttack, api.AttackPayload{TargetID: "npc/goblin#1"})
	if !hasText(c.drain(), "Цель не найдена") {
		t.Error("targets in other rooms must not be found")
	}

	c.do(ActionGo, api.ExitPayload{Exit: "east"})
	c.do(ActionGo, api.ExitPayload{Exit: "north"})
	c.drain()
	c.do(ActionAttack, api.AttackPayload{TargetID: "npc/goblin#1"})
	if !s.combat.IsInCombat(c.entity()) {
		t.Fatal("attack must start combat")
	}

	c.do(ActionFlee, nil)
	msgs := c.drain()
	fled := false
	for _, m := range msgs {
		if end, ok := m.Payload.(api.CombatEndPayload); ok && end.Reason == "flee" {
			fled = true
		}
	}
	if !fled && !hasText(msgs, "не удалось сбежать") {
		t.Errorf("flee outcome not reported: %v", texts(msgs))
	}
}

func TestCommandErrors(t *testing.T) {
	s := newTestService(t, testConfig(t))
	c := login(t, s, api.LoginPayload{Name: "Анна"})

	tests := []struct {
		name   string
		action ActionType
		raw    string
		want   string
	}{
		{"invalid payload", ActionGo, `{}`, "Неверный формат"},
		{"malformed json", ActionSay, `{"text":`, "Неверный формат"},
		{"unknown action", ActionUnknown, `{}`, "Неизвестная команда"},
		{"flee outside combat", ActionFlee, ``, "ни с кем не сражаетесь"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.executeCommand(InternalCommand{Action: tt.action, EntityID: c.sess.EntityID, Payload: json.RawMessage(tt.raw)})
			if msgs := c.drain(); !hasText(msgs, tt.want) {
				t.Errorf("got %v, want %q", texts(msgs), tt.want)
			}
		})
	}
}

func TestSay(t *testing.T) {
	s := newTestService(t, testConfig(t))
	ann := login(t, s, api.LoginPayload{Name: "Анна"})
	bob := login(t, s, api.LoginPayload{Name: "Боб"})
	bob.drain()

	ann.do(ActionSay, api.SayPayload{Text: "  привет  "})
	if !hasText(ann.drain(), "Вы говорите: «привет»") {
		t.Error("speaker must get an echo")
	}
	if !hasText(bob.drain(), "Анна говорит: «привет»") {
		t.Error("room must hear the speaker")
	}
}

func TestDisconnectSavesAndRestores(t *testing.T) {
	cfg := testConfig(t)
	s := newTestService(t, cfg)
	c := login(t, s, api.LoginPayload{Name: "Анна"})
	c.entity().Set(domain.AttrExp, 42.0)
	before := s.objects.Count()

	s.disconnect(c.sess.EntityID, c.sess.Conn)
	if _, ok := s.world.Find(c.sess.EntityID); ok {
		t.Fatal("player must leave the world")
	}
	if s.objects.Count() != before-1 {
		t.Error("player must be unregistered immediately")
	}

	// Новый процесс, тот же каталог сохранений.
	s2 := newTestService(t, cfg)
	back := login(t, s2, api.LoginPayload{Token: c.sess.Token})
	if back.sess.EntityID != c.sess.EntityID || back.sess.Token != c.sess.Token {
		t.Errorf("restored session = %+v, want %+v", back.sess, c.sess)
	}
	p := back.entity()
	if p.GetFloat(domain.AttrExp) != 42 || p.Name() != "Анна" {
		t.Errorf("restored exp=%v name=%q", p.GetFloat(domain.AttrExp), p.Name())
	}
	if back.room() != "room/square" {
		t.Errorf("restored into %s", back.room())
	}
}

func TestReconnectKeepsEntity(t *testing.T) {
	s := newTestService(t, testConfig(t))
	first := login(t, s, api.LoginPayload{Name: "Анна"})
	second := login(t, s, api.LoginPayload{Token: first.sess.Token})

	if second.sess.EntityID != first.sess.EntityID || second.sess.Conn == first.sess.Conn {
		t.Fatalf("reconnect = %+v", second.sess)
	}
	if _, open := <-first.ch; open {
		t.Error("displaced outbox must be closed")
	}

	s.disconnect(first.sess.EntityID, first.sess.Conn)
	if _, ok := s.world.Find(first.sess.EntityID); !ok {
		t.Fatal("stale disconnect must be ignored")
	}
	s.disconnect(second.sess.EntityID, second.sess.Conn)
	if _, ok := s.world.Find(first.sess.EntityID); ok {
		t.Error("current disconnect must remove the player")
	}
}

func TestRunLoop(t *testing.T) {
	s, err := NewService(testConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	sess, err := s.Login(ctx, api.LoginPayload{Name: "Анна"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	ch := s.Hub.Register(sess.EntityID)

	if err := s.ProcessCommand(sess.EntityID, api.ClientCommand{Action: "look"}); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-ch:
		if m.Type != api.MsgRoom {
			t.Errorf("first message = %s", m.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from the loop")
	}

	var stats StatsView
	if err := s.Inspect(ctx, func() { stats = s.DebugStats() }); err != nil {
		t.Fatal(err)
	}
	if stats.Online != 1 || stats.Objects == 0 {
		t.Errorf("stats = %+v", stats)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	if !hasText(drainChan(ch), "Сервер останавливается") {
		t.Error("shutdown notice was not broadcast")
	}
	if err := s.ProcessCommand(sess.EntityID, api.ClientCommand{Action: "LOOK"}); !errors.Is(err, ErrStopped) {
		t.Errorf("after stop: %v", err)
	}
	if _, err := s.store.Load(sess.Token); err != nil {
		t.Errorf("shutdown must save online players: %v", err)
	}
}
