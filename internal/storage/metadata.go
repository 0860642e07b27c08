package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// StorageType tags what kind of structure a storage is. Stored in the
// metadata document, so values must stay stable.
type StorageType uint8

const (
	InvalidStorage StorageType = iota
	ArrayStorage
	HashStorage
	TreeStorage
	SequentialStorage
)

func (t StorageType) String() string {
	switch t {
	case ArrayStorage:
		return "array"
	case HashStorage:
		return "hash"
	case TreeStorage:
		return "tree"
	case SequentialStorage:
		return "sequential"
	default:
		return "invalid"
	}
}

// MaxStorageNameLength bounds storage names so the metadata document stays
// small and names fit fixed-size shared-memory records.
const MaxStorageNameLength = 60

var (
	ErrInvalidStorageID   = errors.New("storage ID must not be zero")
	ErrInvalidStorageType = errors.New("invalid storage type")
	ErrStorageNameTooLong = errors.New("storage name exceeds maximum length")
)

// Metadata describes one storage's structure, not its data: identity, type,
// name, and where its latest durable snapshot is rooted. All storages'
// metadata is persisted together as one JSON document per checkpoint.
type Metadata struct {
	ID   StorageID   `json:"id"`
	Type StorageType `json:"type"`
	Name string      `json:"name"`
	// RootSnapshotPageID is zero until the storage has its first snapshot.
	RootSnapshotPageID SnapshotPagePointer `json:"root_snapshot_page_id"`
}

// Validate checks the metadata fields a storage factory must reject early.
func (m *Metadata) Validate() error {
	if m.ID == 0 {
		return ErrInvalidStorageID
	}
	if m.Type == InvalidStorage || m.Type > SequentialStorage {
		return fmt.Errorf("%w: %d", ErrInvalidStorageType, m.Type)
	}
	if len(m.Name) > MaxStorageNameLength {
		return fmt.Errorf("%w: %q is %d bytes", ErrStorageNameTooLong, m.Name, len(m.Name))
	}
	return nil
}

// SaveMetadataList writes all storages' metadata to path as one JSON
// document, replacing any previous document atomically.
func SaveMetadataList(path string, list []Metadata) error {
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return fmt.Errorf("metadata %d: %w", list[i].ID, err)
		}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace metadata: %w", err)
	}
	return nil
}

// LoadMetadataList reads the metadata document at path. A missing file is
// not an error: it means no storage exists yet.
func LoadMetadataList(path string) ([]Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var list []Metadata
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return nil, fmt.Errorf("metadata %d: %w", list[i].ID, err)
		}
	}
	return list, nil
}
