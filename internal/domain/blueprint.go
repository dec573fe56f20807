package domain

// Blueprint - неизменяемый шаблон атрибутов.
// Сущности читают из него значения по умолчанию, но никогда не пишут.
type Blueprint struct {
	id   string
	data map[string]any
}

// NewBlueprint создает чертеж с копией data.
func NewBlueprint(id string, data map[string]any) *Blueprint {
	return &Blueprint{id: id, data: cloneMap(data)}
}

// ID возвращает идентификатор чертежа. Для nil - "".
func (b *Blueprint) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Query читает значение по пути. Вложенные карты возвращаются копией,
// чтобы чертеж нельзя было изменить через результат.
func (b *Blueprint) Query(path string) any {
	if b == nil {
		return nil
	}
	v, ok := lookupPath(b.data, path)
	if !ok {
		return nil
	}
	return cloneValue(v)
}

// Data возвращает копию всех данных чертежа.
func (b *Blueprint) Data() map[string]any {
	if b == nil {
		return map[string]any{}
	}
	return cloneMap(b.data)
}
