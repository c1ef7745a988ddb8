// Package settings manages the user-supplied Gemini API key, stored
// encrypted in the sync namespace of the session store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/session"
)

var (
	ErrNoAPIKey    = errors.New("gemini API key not configured")
	ErrEmptyAPIKey = errors.New("API key cannot be empty")
)

// Status is the display form of the stored key.
type Status struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

// Service reads and writes the API key.
type Service struct {
	store  session.Store
	key    []byte
	logger logger.Logger
}

// NewService creates a settings service. secret is the passphrase the
// stored key is encrypted with.
func NewService(store session.Store, secret string, log logger.Logger) *Service {
	return &Service{
		store:  store,
		key:    DeriveKey(secret),
		logger: logger.Component(log, "settings"),
	}
}

// APIKey returns the decrypted key or ErrNoAPIKey.
func (s *Service) APIKey(ctx context.Context) (string, error) {
	var sealed []byte
	err := s.store.Get(ctx, session.Sync, session.KeyGeminiAPIKey, &sealed)
	if errors.Is(err, session.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", err
	}

	plain, err := Decrypt(s.key, sealed)
	if err != nil {
		s.logger.Warn(ctx, "stored API key could not be decrypted", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return string(plain), nil
}

// SetAPIKey encrypts and stores key.
func (s *Service) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}

	sealed, err := Encrypt(s.key, []byte(key))
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, session.Sync, session.KeyGeminiAPIKey, sealed); err != nil {
		return err
	}

	s.logger.Info(ctx, "API key updated", nil)
	return nil
}

// ClearAPIKey removes the stored key.
func (s *Service) ClearAPIKey(ctx context.Context) error {
	return s.store.Delete(ctx, session.Sync, session.KeyGeminiAPIKey)
}

// Status reports whether a key is configured without revealing it.
func (s *Service) Status(ctx context.Context) (Status, error) {
	key, err := s.APIKey(ctx)
	if errors.Is(err, ErrNoAPIKey) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}
	return Status{Configured: true, Masked: Mask(key)}, nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	runes := []rune(key)
	if len(runes) <= 8 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-4) + string(runes[len(runes)-4:])
}
