package blueprint

import (
	"errors"
	"io"
	"os"
	"testing"

	"mud-server/internal/domain"
	"mud-server/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitWithOutput(io.Discard)
	os.Exit(m.Run())
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	goblin := Meta{
		ID:        "npc/goblin",
		Kind:      domain.KindNPC,
		Blueprint: domain.NewBlueprint("npc/goblin", map[string]any{"hp": 30}),
	}
	if err := r.Register(goblin); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, ok := r.Get("npc/goblin")
	if !ok {
		t.Fatal("Get: not found")
	}
	if got.Blueprint.Query("hp") != 30 {
		t.Errorf("blueprint data lost: %v", got.Blueprint.Data())
	}
	if !r.Has("npc/goblin") || r.Has("npc/orc") {
		t.Error("Has mismatch")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Meta{ID: "room/base"})

	if err := r.Register(Meta{ID: "room/base"}); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate: err = %v, want ErrDuplicateID", err)
	}
	if err := r.Register(Meta{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("empty id: err = %v, want ErrEmptyID", err)
	}

	r.Unregister("room/base")
	r.Unregister("room/base")
	if r.Count() != 0 {
		t.Errorf("Count after unregister = %d", r.Count())
	}
}

func TestRegistry_AllIsSortedSnapshot(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"npc/orc", "item/sword", "npc/goblin"} {
		_ = r.Register(Meta{ID: id})
	}

	all := r.All()
	want := []string{"item/sword", "npc/goblin", "npc/orc"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("All()[%d] = %s, want %s", i, all[i].ID, id)
		}
	}

	all[0].ID = "mutated"
	if !r.Has("item/sword") || r.Has("mutated") {
		t.Error("All must return a copy")
	}
}

func TestRegistry_Virtual(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(Meta{ID: "npc/base", Virtual: true})
	_ = r.Register(Meta{ID: "npc/goblin", Parent: "npc/base"})

	if r.Instantiable("npc/base") {
		t.Error("virtual template must not be instantiable")
	}
	if !r.Instantiable("npc/goblin") {
		t.Error("concrete template must be instantiable")
	}
	if r.Instantiable("npc/missing") {
		t.Error("unknown template must not be instantiable")
	}
}
