package engine

import "strings"

// ActionType - Внутренний числовой идентификатор действия
type ActionType uint8

const (
	ActionUnknown ActionType = iota
	ActionLogin
	ActionLook
	ActionGo
	ActionAttack
	ActionFlee
	ActionSay

	// Админские команды, доступны только с MUD_CHEATS
	ActionTeleport
	ActionSpawn
	ActionHeal
	ActionKill
	ActionSweep
)

// Маппинг для конвертации JSON -> Engine
var actionStringToCmd = map[string]ActionType{
	"LOGIN":    ActionLogin,
	"LOOK":     ActionLook,
	"GO":       ActionGo,
	"ATTACK":   ActionAttack,
	"FLEE":     ActionFlee,
	"SAY":      ActionSay,
	"TELEPORT": ActionTeleport,
	"SPAWN":    ActionSpawn,
	"HEAL":     ActionHeal,
	"KILL":     ActionKill,
	"SWEEP":    ActionSweep,
}

// Маппинг для логов Engine -> String
var actionCmdToString = map[ActionType]string{
	ActionLogin:    "LOGIN",
	ActionLook:     "LOOK",
	ActionGo:       "GO",
	ActionAttack:   "ATTACK",
	ActionFlee:     "FLEE",
	ActionSay:      "SAY",
	ActionTeleport: "TELEPORT",
	ActionSpawn:    "SPAWN",
	ActionHeal:     "HEAL",
	ActionKill:     "KILL",
	ActionSweep:    "SWEEP",
}

// ParseAction конвертирует строку из JSON в ActionType
func ParseAction(s string) ActionType {
	upper := strings.ToUpper(strings.TrimSpace(s))
	if val, ok := actionStringToCmd[upper]; ok {
		return val
	}
	return ActionUnknown
}

// String реализует интерфейс Stringer
func (a ActionType) String() string {
	if val, ok := actionCmdToString[a]; ok {
		return val
	}
	return "UNKNOWN"
}
