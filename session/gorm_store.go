package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
	now    func() time.Time

	mu          sync.Mutex
	nextID      int
	subscribers map[int]func(Change)
}

// NewGormStore creates a new gorm-backed store.
func NewGormStore(db *gorm.DB, log logger.Logger) *GormStore {
	return &GormStore{
		db:          db,
		logger:      logger.Component(log, "session"),
		now:         time.Now,
		subscribers: make(map[int]func(Change)),
	}
}

// Get loads the entry and decodes it into dest.
func (s *GormStore) Get(ctx context.Context, ns Namespace, key string, dest interface{}) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", ns, key).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		s.logger.Error(ctx, "failed to get session entry", map[string]interface{}{
			"namespace": ns,
			"key":       key,
			"error":     err.Error(),
		})
		return fmt.Errorf("failed to get session entry: %w", err)
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(entry.Value), dest); err != nil {
		return fmt.Errorf("failed to decode session entry %s/%s: %w", ns, key, err)
	}
	return nil
}

// Set stores value, replacing any existing entry.
func (s *GormStore) Set(ctx context.Context, ns Namespace, key string, value interface{}) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode session entry %s/%s: %w", ns, key, err)
	}

	entry := Entry{
		Namespace: ns,
		Key:       key,
		Value:     string(raw),
		UpdatedAt: s.now().UTC(),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		s.logger.Error(ctx, "failed to set session entry", map[string]interface{}{
			"namespace": ns,
			"key":       key,
			"error":     err.Error(),
		})
		return fmt.Errorf("failed to set session entry: %w", err)
	}

	s.notify(Change{Namespace: ns, Key: key, Value: raw})
	return nil
}

// Delete removes the entry. Deleting a missing key is not an error.
func (s *GormStore) Delete(ctx context.Context, ns Namespace, key string) error {
	if err := validate(ns, key); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", ns, key).
		Delete(&Entry{})
	if result.Error != nil {
		s.logger.Error(ctx, "failed to delete session entry", map[string]interface{}{
			"namespace": ns,
			"key":       key,
			"error":     result.Error.Error(),
		})
		return fmt.Errorf("failed to delete session entry: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.notify(Change{Namespace: ns, Key: key, Removed: true})
	}
	return nil
}

// Subscribe registers fn for every committed change. Callbacks run
// synchronously on the writer's goroutine.
func (s *GormStore) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *GormStore) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
