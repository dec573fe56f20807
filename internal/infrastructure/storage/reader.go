package storage

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Load читает снимок по токену. Нет файла - ErrNotFound.
func (s *Store) Load(token string) (Snapshot, error) {
	path, err := s.path(token)
	if err != nil {
		return Snapshot{}, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Snapshot{}, errors.Wrapf(ErrNotFound, "token %s", token)
	}
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "open snapshot %s", token)
	}
	defer f.Close()

	snap, err := readBinary(f)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read snapshot %s", token)
	}
	snap.Token = token
	return snap, nil
}

func readBinary(r io.Reader) (Snapshot, error) {
	var header SnapshotHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Snapshot{}, errors.Wrap(ErrCorrupt, "failed to read header")
	}

	if string(header.Magic[:]) != MagicHeader {
		return Snapshot{}, errors.Wrap(ErrCorrupt, "invalid magic")
	}
	if header.Version != Version1 {
		return Snapshot{}, errors.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}
	if header.PayloadLen > MaxPayloadSize {
		return Snapshot{}, errors.Wrapf(ErrCorrupt, "payload length %d", header.PayloadLen)
	}

	payload := make([]byte, header.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Snapshot{}, errors.Wrap(ErrCorrupt, "truncated payload")
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, errors.Wrap(ErrCorrupt, err.Error())
	}
	if snap.Dbase == nil {
		snap.Dbase = make(map[string]any)
	}
	snap.SavedAt = header.SavedAt
	return snap, nil
}

// ReadFile читает снимок по пути к файлу. Токен берется из имени файла.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	snap, err := readBinary(f)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "read %s", path)
	}
	snap.Token = strings.TrimSuffix(filepath.Base(path), fileExt)
	return snap, nil
}
