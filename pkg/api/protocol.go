package api

import (
	"github.com/goccy/go-json"
)

// --- СЕРВЕР -> КЛИЕНТ ---

// Типы сообщений сервера.
const (
	MsgWelcome      = "welcome"
	MsgRoom         = "room"
	MsgLog          = "log"
	MsgError        = "error"
	MsgCombatStart  = "combat-start"
	MsgCombatUpdate = "combat-update"
	MsgCombatEnd    = "combat-end"
)

// ServerMessage это корневой объект, который сервер отправляет клиенту.
// Структура Payload зависит от Type.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// WelcomePayload отправляется после успешного LOGIN.
type WelcomePayload struct {
	// Token нужно предъявить при следующем входе, чтобы вернуть персонажа.
	Token    string `json:"token"`
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
}

// RoomView описывает комнату так, как ее видит игрок.
type RoomView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Exits       []string       `json:"exits"`
	Occupants   []OccupantView `json:"occupants"`
}

// OccupantView - кто-то или что-то в комнате.
type OccupantView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Fighting bool   `json:"fighting,omitempty"`
}

// LogEntry представляет одну запись в игровом логе (чате).
type LogEntry struct {
	Text      string `json:"text"`
	Type      string `json:"type"`      // INFO, COMBAT, SPEECH, ERROR
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

// --- БОЙ ---

// FighterView - полный снимок бойца для combat-start.
type FighterView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
	HP    int    `json:"hp"`
	MaxHP int    `json:"maxHp"`
	// Gauge заполнение шкалы хода в процентах (0-100).
	Gauge int `json:"gauge"`
}

// FighterState - то, что меняется каждый тик.
type FighterState struct {
	HP    int `json:"hp"`
	MaxHP int `json:"maxHp"`
	Gauge int `json:"gauge"`
}

// CombatAction - запись о действии за тик.
type CombatAction struct {
	Side        string `json:"side"` // player, enemy
	Type        string `json:"type"` // attack, flee_failed
	Damage      int    `json:"damage,omitempty"`
	Crit        bool   `json:"crit,omitempty"`
	Description string `json:"description"`
}

type CombatStartPayload struct {
	CombatID string      `json:"combatId"`
	Player   FighterView `json:"player"`
	Enemy    FighterView `json:"enemy"`
}

type CombatUpdatePayload struct {
	CombatID string         `json:"combatId"`
	Actions  []CombatAction `json:"actions"`
	Player   FighterState   `json:"player"`
	Enemy    FighterState   `json:"enemy"`
}

type CombatEndPayload struct {
	CombatID string `json:"combatId"`
	Reason   string `json:"reason"` // victory, defeat, flee, aborted
	Message  string `json:"message"`
}

// --- КЛИЕНТ -> СЕРВЕР ---

// ClientCommand это корневой объект для всех сообщений от клиента к серверу.
type ClientCommand struct {
	// Action название действия: LOGIN, LOOK, GO, ATTACK, FLEE, SAY.
	Action string `json:"action"`

	// Payload JSON-объект с данными для действия. Его структура зависит от Action.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Payloads ---

// LoginPayload - первый пакет клиента.
type LoginPayload struct {
	Name string `json:"name"`
	// Token из прошлого welcome. Пустой - новый гость.
	Token string `json:"token,omitempty"`
}

// ExitPayload используется для GO.
type ExitPayload struct {
	Exit string `json:"exit"`
}

// AttackPayload используется для ATTACK. Skill - id приема, в бою
// ставит прием в очередь на следующий ход.
type AttackPayload struct {
	TargetID string `json:"targetId,omitempty"`
	Skill    string `json:"skill,omitempty"`
}

// SayPayload используется для SAY.
type SayPayload struct {
	Text string `json:"text"`
}
