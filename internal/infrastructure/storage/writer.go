package storage

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"mud-server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	MagicHeader string = `MUDS` // 4 байта
	Version1    uint32 = 1

	fileExt = ".muds"
	// MaxPayloadSize ограничивает тело снимка при чтении.
	MaxPayloadSize = 1 << 20
)

var (
	ErrNotFound     = errors.New("snapshot not found")
	ErrInvalidToken = errors.New("invalid session token")
	ErrCorrupt      = errors.New("snapshot is corrupt")
)

// SnapshotHeader - заголовок файла снимка.
// binary.Write пишет его целиком: только массивы и числа.
type SnapshotHeader struct {
	Magic      [4]byte // 4 байта
	Version    uint32  // 4 байта
	SavedAt    int64   // 8 байт, Unix milliseconds
	PayloadLen uint32  // 4 байта
}

// Snapshot - сохраняемое состояние игрока.
type Snapshot struct {
	Token    string         `json:"-"`
	EntityID string         `json:"entityId"`
	SavedAt  int64          `json:"-"`
	Dbase    map[string]any `json:"dbase"`
}

// Store хранит по одному файлу на токен сессии.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create save dir %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// path проверяет токен и возвращает путь к файлу.
// Токен обязан быть UUID, поэтому не может выйти за пределы каталога.
func (s *Store) path(token string) (string, error) {
	id, err := uuid.Parse(token)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidToken, "%q", token)
	}
	return filepath.Join(s.dir, id.String()+fileExt), nil
}

// Save атомарно записывает снимок: во временный файл, затем rename.
func (s *Store) Save(snap Snapshot) error {
	path, err := s.path(snap.Token)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(s.dir, "snapshot-*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp snapshot")
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := writeBinary(f, snap); err != nil {
		f.Close()
		return errors.Wrapf(err, "write snapshot %s", snap.Token)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp snapshot")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "commit snapshot %s", snap.Token)
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "storage",
		"entity_id": snap.EntityID,
		"path":      path,
	}).Debug("Snapshot saved")
	return nil
}

// Delete удаляет снимок. Отсутствующий файл - не ошибка.
func (s *Store) Delete(token string) error {
	path, err := s.path(token)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete snapshot %s", token)
	}
	return nil
}

func writeBinary(w io.Writer, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode payload")
	}
	if len(payload) > MaxPayloadSize {
		return errors.Errorf("payload too long: %d", len(payload))
	}

	header := SnapshotHeader{
		Version:    Version1,
		SavedAt:    snap.SavedAt,
		PayloadLen: uint32(len(payload)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "failed to write payload")
	}
	return nil
}
