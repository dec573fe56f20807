package engine

import (
	"fmt"
	"strings"

	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/internal/infrastructure/storage"
	"mud-server/pkg/api"
	"mud-server/pkg/logger"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrPlayerMissing = errors.New("player entity is missing")

// Session - результат входа, который клиент держит до разрыва.
type Session struct {
	Token    string
	EntityID string
	Name     string
	// Conn отличает текущее соединение от вытесненного повторным входом.
	Conn uint64
}

// Welcome - первое сообщение клиенту.
func (s Session) Welcome() api.ServerMessage {
	return api.ServerMessage{Type: api.MsgWelcome, Payload: api.WelcomePayload{
		Token:    s.Token,
		EntityID: s.EntityID,
		Name:     s.Name,
	}}
}

type sessionEntry struct {
	token    string
	entityID string
	conn     uint64
}

// sessions - онлайн-игроки. Принадлежит игровому циклу.
type sessions struct {
	byToken  map[string]*sessionEntry
	byEntity map[string]*sessionEntry
	nextConn uint64
}

func newSessions() *sessions {
	return &sessions{
		byToken:  make(map[string]*sessionEntry),
		byEntity: make(map[string]*sessionEntry),
	}
}

func (ss *sessions) add(token, entityID string) *sessionEntry {
	ss.nextConn++
	e := &sessionEntry{token: token, entityID: entityID, conn: ss.nextConn}
	ss.byToken[token] = e
	ss.byEntity[entityID] = e
	return e
}

func (ss *sessions) remove(e *sessionEntry) {
	delete(ss.byToken, e.token)
	delete(ss.byEntity, e.entityID)
}

func (ss *sessions) count() int { return len(ss.byToken) }

// normalizeToken возвращает канонический UUID или новый, если токен не подходит.
func normalizeToken(token string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return uuid.NewString(), false
	}
	return id.String(), true
}

// join находит или создает персонажа для рукопожатия.
// Токен онлайн-игрока перехватывает его персонажа новым соединением.
func (s *Service) join(p api.LoginPayload) (Session, error) {
	token, known := normalizeToken(p.Token)

	if entry, ok := s.sessions.byToken[token]; known && ok {
		player, found := s.world.Find(entry.entityID)
		if !found {
			return Session{}, errors.Wrapf(ErrPlayerMissing, "reconnect %s", entry.entityID)
		}
		s.sessions.nextConn++
		entry.conn = s.sessions.nextConn
		logger.Log.WithField("entity_id", entry.entityID).Info("Client reconnected")
		return Session{Token: token, EntityID: entry.entityID, Name: player.Name(), Conn: entry.conn}, nil
	}

	entityID := "player/" + strings.ToLower(ulid.Make().String())
	dbase := map[string]any{}
	restored := false
	if known && s.store != nil {
		snap, err := s.store.Load(token)
		switch {
		case err == nil:
			entityID, dbase, restored = snap.EntityID, snap.Dbase, true
		case !errors.Is(err, storage.ErrNotFound):
			logger.Log.WithError(err).Warn("Failed to restore snapshot, starting fresh")
		}
	}

	meta, _ := s.blueprints.Get(PlayerTemplate)
	player, err := s.world.NewEntity(entityID,
		domain.WithKind(domain.KindPlayer),
		domain.WithBlueprint(meta.Blueprint),
		domain.WithDbase(dbase),
	)
	if err != nil {
		return Session{}, errors.Wrap(err, "create player")
	}
	if name := strings.TrimSpace(p.Name); name != "" && !restored {
		player.Set(domain.AttrName, name)
	}
	if player.GetFloat(domain.AttrHP) <= 0 {
		player.Set(domain.AttrHP, player.GetFloat(domain.AttrMaxHP))
	}

	s.place(player)
	entry := s.sessions.add(token, entityID)

	logger.Log.WithFields(logrus.Fields{
		"component": "engine",
		"entity_id": entityID,
		"name":      player.Name(),
		"restored":  restored,
	}).Info("Client logged in")
	return Session{Token: token, EntityID: entityID, Name: player.Name(), Conn: entry.conn}, nil
}

// place вводит игрока в стартовую комнату с полным протоколом перемещения.
// Если вход отменили, игрок все равно попадает туда тихо.
func (s *Service) place(player *domain.Entity) {
	start, ok := s.world.Room(s.world.Config().StartRoom)
	if !ok {
		logger.Log.WithField("room_id", s.world.Config().StartRoom).Error("Start room is missing")
		return
	}
	if !player.MoveTo(start) {
		player.MoveQuiet(start)
	}
	s.world.BroadcastText(start, fmt.Sprintf("%s входит в мир.", player.Name()), "INFO", player)
}

// disconnect сохраняет и убирает игрока. Разрыв вытесненного соединения игнорируется.
func (s *Service) disconnect(entityID string, conn uint64) {
	entry, ok := s.sessions.byEntity[entityID]
	if !ok || entry.conn != conn {
		return
	}
	s.sessions.remove(entry)

	player, ok := s.world.Find(entityID)
	if !ok {
		return
	}
	if id := s.combat.CombatID(player); id != "" {
		s.combat.EndCombat(id, combat.ReasonAborted)
	}
	if err := s.save(entry.token, player); err != nil {
		logger.Log.WithField("entity_id", entityID).WithError(err).Error("Failed to save player")
	}

	s.world.BroadcastText(player.Environment(), fmt.Sprintf("%s покидает мир.", player.Name()), "INFO", player)
	s.objects.Unregister(entityID)
	player.Destroy()

	logger.Log.WithField("entity_id", entityID).Info("Client disconnected")
}

func (s *Service) save(token string, player *domain.Entity) error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(storage.Snapshot{
		Token:    token,
		EntityID: player.ID(),
		SavedAt:  s.now().UnixMilli(),
		Dbase:    player.Dbase(),
	})
}

// saveAll сохраняет всех онлайн-игроков. Возвращает число сохраненных.
func (s *Service) saveAll() int {
	saved := 0
	for token, entry := range s.sessions.byToken {
		player, ok := s.world.Find(entry.entityID)
		if !ok {
			continue
		}
		if err := s.save(token, player); err != nil {
			logger.Log.WithField("entity_id", entry.entityID).WithError(err).Error("Failed to save player")
			continue
		}
		saved++
	}
	return saved
}
