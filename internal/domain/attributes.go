package domain

import "strings"

// PathSeparator разделяет сегменты пути атрибута: "skills/sword/level".
const PathSeparator = "/"

// Стандартные пути атрибутов, которые читают бой и мир.
const (
	AttrName        = "name"
	AttrDescription = "description"
	AttrLevel       = "level"
	AttrHP          = "hp"
	AttrMaxHP       = "max_hp"
	AttrSpeed       = "speed"
	AttrAttack      = "attack"
	AttrDefense     = "defense"
	AttrExp         = "exp"
)

// splitPath режет путь на сегменты, пустые сегменты отбрасываются.
func splitPath(path string) []string {
	raw := strings.Split(path, PathSeparator)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// lookupPath ищет значение по пути. ok=false, если значения нет или оно nil.
func lookupPath(m map[string]any, path string) (any, bool) {
	parts := splitPath(path)
	if len(parts) == 0 || m == nil {
		return nil, false
	}

	var cur any = m
	for _, p := range parts {
		node, isMap := cur.(map[string]any)
		if !isMap {
			return nil, false
		}
		next, exists := node[p]
		if !exists {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// assignPath пишет значение, создавая промежуточные узлы.
// Промежуточное значение, которое не является map, заменяется новой map.
func assignPath(m map[string]any, path string, value any) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}

	node := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = cloneValue(value)
	return true
}

// deletePath удаляет лист. Возвращает false, если пути не было.
func deletePath(m map[string]any, path string) bool {
	parts := splitPath(path)
	if len(parts) == 0 {
		return false
	}

	node := m
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			return false
		}
		node = next
	}
	last := parts[len(parts)-1]
	if _, ok := node[last]; !ok {
		return false
	}
	delete(node, last)
	return true
}

// cloneMap делает глубокую копию дерева атрибутов.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// toFloat приводит числовое значение к float64. Нечисловое дает 0, false.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// --- ПОСТОЯННЫЕ АТРИБУТЫ (dbase) ---

// Get возвращает локальное значение, а при его отсутствии - значение чертежа.
func (e *Entity) Get(path string) any {
	if v, ok := lookupPath(e.dbase, path); ok {
		return v
	}
	return e.blueprint.Query(path)
}

// Set пишет значение в локальную карту. nil равносилен Del.
// В чертеж запись никогда не идет.
func (e *Entity) Set(path string, value any) {
	if value == nil {
		e.Del(path)
		return
	}
	assignPath(e.dbase, path, value)
}

// Add прибавляет delta к текущему значению (отсутствующее считается 0).
func (e *Entity) Add(path string, delta float64) float64 {
	cur, _ := toFloat(e.Get(path))
	next := cur + delta
	e.Set(path, next)
	return next
}

// Del удаляет локальное значение. После этого Get снова видит чертеж.
func (e *Entity) Del(path string) bool {
	return deletePath(e.dbase, path)
}

// GetInt читает число и отбрасывает дробную часть.
func (e *Entity) GetInt(path string) int {
	f, _ := toFloat(e.Get(path))
	return int(f)
}

// GetFloat читает число как float64.
func (e *Entity) GetFloat(path string) float64 {
	f, _ := toFloat(e.Get(path))
	return f
}

// GetString читает строку, нестроковое значение дает "".
func (e *Entity) GetString(path string) string {
	s, _ := e.Get(path).(string)
	return s
}

// GetBool читает флаг.
func (e *Entity) GetBool(path string) bool {
	b, _ := e.Get(path).(bool)
	return b
}

// Dbase экспортирует копию постоянной карты. Временные атрибуты и чертеж не входят.
func (e *Entity) Dbase() map[string]any {
	return cloneMap(e.dbase)
}

// SetDbase заменяет постоянную карту копией data.
func (e *Entity) SetDbase(data map[string]any) {
	e.dbase = cloneMap(data)
}

// --- ВРЕМЕННЫЕ АТРИБУТЫ (temp) ---
// Живут только в сессии, чертеж не читают, в экспорт не попадают.

func (e *Entity) GetTemp(path string) any {
	v, _ := lookupPath(e.temp, path)
	return v
}

func (e *Entity) SetTemp(path string, value any) {
	if value == nil {
		e.DelTemp(path)
		return
	}
	assignPath(e.temp, path, value)
}

func (e *Entity) AddTemp(path string, delta float64) float64 {
	cur, _ := toFloat(e.GetTemp(path))
	next := cur + delta
	e.SetTemp(path, next)
	return next
}

func (e *Entity) DelTemp(path string) bool {
	return deletePath(e.temp, path)
}

// TempBool читает временный флаг.
func (e *Entity) TempBool(path string) bool {
	b, _ := e.GetTemp(path).(bool)
	return b
}

// TempString читает временную строку.
func (e *Entity) TempString(path string) string {
	s, _ := e.GetTemp(path).(string)
	return s
}
