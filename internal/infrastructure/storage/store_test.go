package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"mud-server/pkg/logger"
)

const token = "5f0c8f8e-6a53-4d2c-9b43-3f4c7b0d2a11"

func TestMain(m *testing.M) {
	logger.InitWithOutput(io.Discard)
	os.Exit(m.Run())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	in := Snapshot{
		Token:    token,
		EntityID: "player/5f0c8f8e",
		SavedAt:  1767268800000,
		Dbase: map[string]any{
			"name": "Анна",
			"hp":   42.0,
			"pass": map[string]any{"gate": true},
		},
	}
	if err := s.Save(in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := s.Load(token)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.EntityID != in.EntityID || out.SavedAt != in.SavedAt || out.Token != token {
		t.Errorf("header fields = %+v", out)
	}
	if out.Dbase["name"] != "Анна" || out.Dbase["hp"] != 42.0 {
		t.Errorf("dbase = %v", out.Dbase)
	}
	if nested, ok := out.Dbase["pass"].(map[string]any); !ok || nested["gate"] != true {
		t.Errorf("nested map lost: %v", out.Dbase["pass"])
	}

	leftovers, _ := filepath.Glob(filepath.Join(s.Dir(), "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left: %v", leftovers)
	}
}

func TestLoadErrors(t *testing.T) {
	s, _ := NewStore(t.TempDir())

	if _, err := s.Load(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: %v", err)
	}
	if _, err := s.Load("../../etc/passwd"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("traversal: %v", err)
	}
	if err := s.Save(Snapshot{Token: "not-a-uuid"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("save with bad token: %v", err)
	}
}

func TestReadBinaryRejectsBadInput(t *testing.T) {
	var good bytes.Buffer
	if err := writeBinary(&good, Snapshot{EntityID: "p", Dbase: map[string]any{}}); err != nil {
		t.Fatal(err)
	}

	badMagic := append([]byte(nil), good.Bytes()...)
	copy(badMagic, "XXXX")

	badVersion := append([]byte(nil), good.Bytes()...)
	binary.LittleEndian.PutUint32(badVersion[4:], 99)

	tests := []struct {
		name    string
		data    []byte
		corrupt bool
	}{
		{"empty", nil, true},
		{"bad magic", badMagic, true},
		{"truncated", good.Bytes()[:good.Len()-2], true},
		{"unknown version", badVersion, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readBinary(bytes.NewReader(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrCorrupt) != tt.corrupt {
				t.Errorf("err = %v, corrupt want %v", err, tt.corrupt)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	_ = s.Save(Snapshot{Token: token, EntityID: "p"})

	if err := s.Delete(token); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(token); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if _, err := s.Load(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir)
	if err := s.Save(Snapshot{Token: token, EntityID: "player/abc", SavedAt: 10, Dbase: map[string]any{"hp": 5.0}}); err != nil {
		t.Fatal(err)
	}

	snap, err := ReadFile(filepath.Join(dir, token+fileExt))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if snap.Token != token || snap.EntityID != "player/abc" || snap.SavedAt != 10 {
		t.Errorf("snap = %+v", snap)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.muds")); err == nil {
		t.Error("missing file must fail")
	}
}
