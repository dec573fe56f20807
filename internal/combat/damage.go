package combat

import "math"

const (
	// MinDamage - урон никогда не бывает ниже этого значения.
	MinDamage = 1
	// WeaponMismatchPenalty - множитель урона приема, выполненного не тем оружием.
	WeaponMismatchPenalty = 0.7
	// CritMultiplier применяется, когда rollCrit начнет возвращать true.
	CritMultiplier = 1.5

	varianceMin   = 0.8
	varianceRange = 0.4
)

// Roller - источник случайности. *rand.Rand подходит.
type Roller interface {
	Float64() float64
}

// Stats - боевые характеристики на момент удара.
type Stats struct {
	Attack  float64
	Defense float64
}

// Action - боевой прием с плоскими модификаторами.
type Action struct {
	ID          string
	Name        string
	AttackBonus float64
	DamageBonus float64
	// Weapon - тип оружия, которым прием выполняется без штрафа. Пусто - любым.
	Weapon string
}

// Result - итог одного удара.
type Result struct {
	Damage int
	Hit    bool
	Crit   bool
}

// DamageEngine считает урон. Состояния, кроме источника случайности, нет.
type DamageEngine struct {
	rng Roller
}

func NewDamageEngine(rng Roller) *DamageEngine {
	return &DamageEngine{rng: rng}
}

// Calculate - базовая формула.
//
//	base = attack * U(0.8, 1.2)
//	attack >= defense: base*2 - defense
//	attack <  defense: base^2 / defense
//
// При ожидаемом base (множитель разброса 1) ветки на границе attack == defense
// совпадают, формула непрерывна по среднему урону.
func (d *DamageEngine) Calculate(attacker, defender Stats) Result {
	return d.resolve(attacker.Attack, 0, defender, 1)
}

// CalculateWithAction добавляет модификаторы приема и штраф за чужое оружие.
// Без приема равносильно Calculate.
func (d *DamageEngine) CalculateWithAction(attacker, defender Stats, action *Action, weaponMismatch bool) Result {
	if action == nil {
		return d.Calculate(attacker, defender)
	}
	multiplier := 1.0
	if weaponMismatch {
		multiplier = WeaponMismatchPenalty
	}
	return d.resolve(attacker.Attack+action.AttackBonus, action.DamageBonus, defender, multiplier)
}

func (d *DamageEngine) resolve(attack, flatBonus float64, defender Stats, multiplier float64) Result {
	if !d.rollHit(attack, defender) {
		return Result{}
	}

	base := attack*(varianceMin+d.rng.Float64()*varianceRange) + flatBonus
	damage := formula(base, attack, defender.Defense)

	crit := d.rollCrit(attack, defender)
	if crit {
		damage *= CritMultiplier
	}
	damage *= multiplier

	return Result{Damage: clampDamage(damage), Hit: true, Crit: crit}
}

func formula(base, attack, defense float64) float64 {
	if attack >= defense || defense <= 0 {
		return base*2 - defense
	}
	return base * base / defense
}

func clampDamage(v float64) int {
	dmg := int(math.Floor(v))
	if dmg < MinDamage {
		return MinDamage
	}
	return dmg
}

// rollHit - точка расширения для уклонений. Сейчас удар попадает всегда.
func (d *DamageEngine) rollHit(attack float64, defender Stats) bool {
	return true
}

// rollCrit - точка расширения для критов. Сейчас критов нет.
func (d *DamageEngine) rollCrit(attack float64, defender Stats) bool {
	return false
}
