// Package session persists extension-style key/value state: the query
// history and batch run in the local namespace, settings in the sync
// namespace.
package session

import (
	"context"
	"errors"
	"time"
)

// Namespace partitions entries the way browser storage areas do.
type Namespace string

const (
	Local Namespace = "local"
	Sync  Namespace = "sync"
)

// Well-known keys.
const (
	KeyHistory      = "queryHistory"
	KeyBatchState   = "batchState"
	KeyGeminiAPIKey = "geminiApiKey"
)

var (
	ErrNotFound         = errors.New("session entry not found")
	ErrInvalidNamespace = errors.New("invalid session namespace")
	ErrEmptyKey         = errors.New("session key cannot be empty")
)

// IsValid reports whether the namespace is one of the known storage areas.
func (n Namespace) IsValid() bool {
	return n == Local || n == Sync
}

// Entry is a stored value. Value holds the JSON encoding.
type Entry struct {
	Namespace Namespace `gorm:"column:namespace;type:varchar(16);primaryKey" json:"namespace"`
	Key       string    `gorm:"column:entry_key;type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"column:value;type:text;not null" json:"value"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Entry) TableName() string {
	return "session_entries"
}

// Change describes a committed write. Removed is set for deletions.
type Change struct {
	Namespace Namespace
	Key       string
	Value     []byte
	Removed   bool
}

// Store is the persistence contract. Values are JSON encoded; Get decodes
// into dest.
type Store interface {
	Get(ctx context.Context, ns Namespace, key string, dest interface{}) error
	Set(ctx context.Context, ns Namespace, key string, value interface{}) error
	Delete(ctx context.Context, ns Namespace, key string) error
	Subscribe(fn func(Change)) (cancel func())
}

func validate(ns Namespace, key string) error {
	if !ns.IsValid() {
		return ErrInvalidNamespace
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
