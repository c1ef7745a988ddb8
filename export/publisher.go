package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/storage"
)

// Prefix is the storage key prefix for all exports.
const Prefix = "exports/"

const contentType = "text/csv"

var ErrEmptyKind = errors.New("export kind cannot be empty")

// Artifact is a published export.
type Artifact struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Publisher writes rendered exports to blob storage.
type Publisher struct {
	blobs  storage.BlobStorage
	logger logger.Logger
	now    func() time.Time
}

func NewPublisher(blobs storage.BlobStorage, log logger.Logger) *Publisher {
	return &Publisher{
		blobs:  blobs,
		logger: logger.Component(log, "export"),
		now:    time.Now,
	}
}

// Publish uploads data as exports/<kind>-<timestamp>.csv and returns where
// it can be fetched.
func (p *Publisher) Publish(ctx context.Context, kind string, data []byte) (Artifact, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return Artifact{}, ErrEmptyKind
	}

	created := p.now().UTC()
	key := fmt.Sprintf("%s%s-%s.csv", Prefix, kind, created.Format("20060102-150405"))
	if err := p.blobs.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		p.logger.Error(ctx, "failed to upload export", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return Artifact{}, fmt.Errorf("failed to upload export: %w", err)
	}

	url, err := p.blobs.GetURL(ctx, key)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to resolve export URL: %w", err)
	}

	p.logger.Info(ctx, "export published", map[string]interface{}{
		"key":  key,
		"size": len(data),
	})
	return Artifact{Key: key, URL: url, Size: int64(len(data)), CreatedAt: created}, nil
}

// List returns the published exports, newest first.
func (p *Publisher) List(ctx context.Context) ([]Artifact, error) {
	objects, err := p.blobs.List(ctx, Prefix)
	if err != nil {
		return nil, err
	}

	artifacts := make([]Artifact, 0, len(objects))
	for _, obj := range objects {
		url, err := p.blobs.GetURL(ctx, obj.Key)
		if err != nil {
			p.logger.Warn(ctx, "failed to resolve export URL", map[string]interface{}{
				"key":   obj.Key,
				"error": err.Error(),
			})
			continue
		}
		artifacts = append(artifacts, Artifact{Key: obj.Key, URL: url, Size: obj.Size, CreatedAt: obj.ModTime})
	}
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.After(artifacts[j].CreatedAt)
	})
	return artifacts, nil
}
