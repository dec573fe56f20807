package engine

import (
	"time"

	"mud-server/internal/combat"
	"mud-server/internal/heartbeat"
)

// Снимки состояния для debug-эндпоинтов.
// Вызывать только внутри Inspect.

type ObjectView struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Name        string        `json:"name"`
	Blueprint   string        `json:"blueprint,omitempty"`
	Environment string        `json:"environment,omitempty"`
	Inventory   []string      `json:"inventory"`
	Heartbeat   time.Duration `json:"heartbeat,omitempty"`
	CallOuts    int           `json:"callOuts,omitempty"`
	Dbase       any           `json:"dbase"`
}

type StatsView struct {
	Objects         int    `json:"objects"`
	Blueprints      int    `json:"blueprints"`
	Heartbeats      int    `json:"heartbeats"`
	HeartbeatTicks  uint64 `json:"heartbeatTicks"`
	PendingCallOuts int    `json:"pendingCallOuts"`
	Combats         int    `json:"combats"`
	Online          int    `json:"online"`
	DroppedMessages uint64 `json:"droppedMessages"`
}

func (s *Service) DebugObjects() []ObjectView {
	all := s.objects.FindAll(nil)
	out := make([]ObjectView, 0, len(all))
	for _, e := range all {
		v := ObjectView{
			ID:        e.ID(),
			Kind:      string(e.Kind()),
			Name:      e.Name(),
			Blueprint: e.Blueprint().ID(),
			Inventory: make([]string, 0),
			Heartbeat: e.HeartbeatInterval(),
			CallOuts:  e.PendingCallOuts(),
			Dbase:     e.Dbase(),
		}
		if env := e.Environment(); env != nil {
			v.Environment = env.ID()
		}
		for _, child := range e.Inventory() {
			v.Inventory = append(v.Inventory, child.ID())
		}
		out = append(out, v)
	}
	return out
}

func (s *Service) DebugHeartbeats() []heartbeat.EntryView { return s.heartbeats.Snapshot() }
func (s *Service) DebugCombats() []combat.CombatView      { return s.combat.Snapshot() }

func (s *Service) DebugStats() StatsView {
	return StatsView{
		Objects:         s.objects.Count(),
		Blueprints:      s.blueprints.Count(),
		Heartbeats:      s.heartbeats.Len(),
		HeartbeatTicks:  s.heartbeats.Ticks(),
		PendingCallOuts: s.callOuts.Len(),
		Combats:         s.combat.Count(),
		Online:          s.sessions.count(),
		DroppedMessages: s.Hub.Dropped(),
	}
}
