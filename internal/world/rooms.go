package world

import (
	"sort"

	"mud-server/internal/combat"
	"mud-server/internal/domain"
	"mud-server/pkg/api"

	"github.com/pkg/errors"
)

// AttrExits хранит выходы комнаты: направление -> id комнаты.
const AttrExits = "exits"

var ErrNoExit = errors.New("no such exit")

// NewRoom создает комнату и регистрирует ее.
func (w *World) NewRoom(id, name, description string, exits map[string]string) (*domain.Entity, error) {
	room, err := w.NewEntity(id, domain.WithKind(domain.KindRoom))
	if err != nil {
		return nil, err
	}
	room.Set(domain.AttrName, name)
	room.Set(domain.AttrDescription, description)
	for dir, dest := range exits {
		SetExit(room, dir, dest)
	}
	return room, nil
}

// SetExit добавляет или заменяет выход.
func SetExit(room *domain.Entity, dir, destID string) {
	room.Set(AttrExits+domain.PathSeparator+dir, destID)
}

// Exits возвращает выходы комнаты.
func Exits(room *domain.Entity) map[string]string {
	raw, _ := room.Get(AttrExits).(map[string]any)
	out := make(map[string]string, len(raw))
	for dir, v := range raw {
		if id, ok := v.(string); ok {
			out[dir] = id
		}
	}
	return out
}

// ExitNames возвращает направления по алфавиту.
func ExitNames(room *domain.Entity) []string {
	exits := Exits(room)
	names := make([]string, 0, len(exits))
	for dir := range exits {
		names = append(names, dir)
	}
	sort.Strings(names)
	return names
}

// Go ведет сущность через выход. false без ошибки - переход отменила одна из сторон.
func (w *World) Go(e *domain.Entity, exit string) (bool, error) {
	room := e.Environment()
	if room == nil {
		return false, errors.Wrapf(ErrNoRoom, "%s is nowhere", e.ID())
	}
	destID, ok := Exits(room)[exit]
	if !ok {
		return false, errors.Wrapf(ErrNoExit, "%s in %s", exit, room.ID())
	}
	dest, ok := w.Room(destID)
	if !ok {
		return false, errors.Wrapf(ErrNoRoom, "exit %s of %s leads to %s", exit, room.ID(), destID)
	}
	return e.MoveTo(dest), nil
}

// Look строит описание окружения viewer.
func (w *World) Look(viewer *domain.Entity) api.RoomView {
	room := viewer.Environment()
	if room == nil {
		return api.RoomView{Exits: []string{}, Occupants: []api.OccupantView{}}
	}

	view := api.RoomView{
		ID:          room.ID(),
		Name:        room.Name(),
		Description: room.GetString(domain.AttrDescription),
		Exits:       ExitNames(room),
		Occupants:   make([]api.OccupantView, 0),
	}
	for _, other := range room.Inventory() {
		if other == viewer {
			continue
		}
		view.Occupants = append(view.Occupants, api.OccupantView{
			ID:       other.ID(),
			Name:     other.Name(),
			Kind:     string(other.Kind()),
			Fighting: other.TempBool(combat.TempFighting),
		})
	}
	return view
}

// SendLook отправляет игроку описание его комнаты.
func (w *World) SendLook(player *domain.Entity) {
	if w.sender == nil || !player.IsPlayer() {
		return
	}
	w.sender.SendTo(player.ID(), api.ServerMessage{Type: api.MsgRoom, Payload: w.Look(player)})
}
