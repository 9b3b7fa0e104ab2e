// Package store is the persistence gateway: an opaque key-value byte store
// holding two JSON blobs per session (the game ledger blob and the timer
// settings blob). The core treats saves as fire-and-forget; a failed save is
// logged by the caller and the in-memory state stays authoritative.
package store

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

const (
	KeyGame  = "game"
	KeyTimer = "timer"
)

// Gateway is the core's only I/O dependency. Load returns nil bytes when
// the key has never been saved.
type Gateway interface {
	Load(code, key string) ([]byte, error)
	Save(code, key string, blob []byte) error
}

// Blob is one persisted JSON document, keyed by session code and logical
// blob name.
type Blob struct {
	Code      string `gorm:"primaryKey;size:16"`
	Key       string `gorm:"primaryKey;size:32"`
	Data      []byte
	UpdatedAt time.Time
}

type DB struct {
	db *gorm.DB
}

func NewDB(db *gorm.DB) (*DB, error) {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

func (s *DB) Load(code, key string) ([]byte, error) {
	var b Blob
	err := s.db.Where("code = ? AND key = ?", code, key).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.Data, nil
}

func (s *DB) Save(code, key string, blob []byte) error {
	b := Blob{Code: code, Key: key, Data: blob, UpdatedAt: time.Now()}
	return s.db.Save(&b).Error
}

// Memory is the gateway used in tests and when no DATABASE_URL is set:
// sessions survive reconnects but not a process restart, which mirrors what
// the browser original got from local storage scoped to one machine.
type Memory struct {
	mu    sync.RWMutex
	blobs map[[2]string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: map[[2]string][]byte{}}
}

func (m *Memory) Load(code, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blobs[[2]string{code, key}], nil
}

func (m *Memory) Save(code, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.blobs[[2]string{code, key}] = cp
	return nil
}
