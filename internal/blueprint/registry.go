package blueprint

import (
	"sort"

	"mud-server/internal/domain"
	"mud-server/pkg/logger"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateID = errors.New("blueprint already registered")
	ErrEmptyID     = errors.New("blueprint id is empty")
	ErrNotFound    = errors.New("blueprint not found")
)

// Meta описывает шаблон в каталоге.
type Meta struct {
	ID   string
	Name string
	Kind domain.Kind
	// Parent - id базового шаблона, только для документации каталога.
	Parent string
	// Virtual - базовый шаблон, экземпляры напрямую не создаются.
	Virtual bool
	// Blueprint - данные по умолчанию для экземпляров.
	Blueprint *domain.Blueprint
}

// Registry - каталог шаблонов. Не потокобезопасен, владеет им игровой цикл.
type Registry struct {
	items map[string]Meta
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Meta)}
}

// Register добавляет шаблон. Повторный id - ошибка конфигурации.
func (r *Registry) Register(meta Meta) error {
	if meta.ID == "" {
		return ErrEmptyID
	}
	if _, ok := r.items[meta.ID]; ok {
		return errors.Wrapf(ErrDuplicateID, "register %s", meta.ID)
	}
	if meta.Blueprint == nil {
		meta.Blueprint = domain.NewBlueprint(meta.ID, nil)
	}
	r.items[meta.ID] = meta

	logger.Log.WithFields(logrus.Fields{
		"component":    "blueprints",
		"blueprint_id": meta.ID,
		"virtual":      meta.Virtual,
	}).Debug("Blueprint registered")
	return nil
}

// Unregister удаляет шаблон. Отсутствующий id молча игнорируется.
func (r *Registry) Unregister(id string) {
	delete(r.items, id)
}

func (r *Registry) Get(id string) (Meta, bool) {
	m, ok := r.items[id]
	return m, ok
}

func (r *Registry) Has(id string) bool {
	_, ok := r.items[id]
	return ok
}

// All возвращает копию каталога, упорядоченную по id.
func (r *Registry) All() []Meta {
	out := make([]Meta, 0, len(r.items))
	for _, m := range r.items {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) Count() int { return len(r.items) }

// Instantiable сообщает, можно ли создать экземпляр шаблона.
func (r *Registry) Instantiable(id string) bool {
	m, ok := r.items[id]
	return ok && !m.Virtual
}
