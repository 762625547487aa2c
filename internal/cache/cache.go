// Package cache serves the analysis document from a TTL cache and regenerates it on demand.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Generator builds a fresh document.
type Generator func(ctx context.Context) (*Document, error)

type Cache struct {
	store    Store
	ttl      time.Duration
	generate Generator
	log      *zap.Logger
	now      func() time.Time

	mu sync.Mutex // serializes refreshes
}

func New(store Store, ttl time.Duration, generate Generator, log *zap.Logger) *Cache {
	return &Cache{store: store, ttl: ttl, generate: generate, log: log, now: time.Now}
}

// Get returns the stored document while it is younger than the TTL, otherwise regenerates it.
// force skips the stored document.
func (c *Cache) Get(ctx context.Context, force bool) (*Document, error) {
	if !force {
		doc, err := c.store.Load(ctx)
		switch {
		case err == nil && doc.Fresh(c.now(), c.ttl):
			c.log.Info("serving cached document", zap.Time("timestamp", doc.Timestamp))
			return doc, nil
		case err != nil && !errors.Is(err, ErrMiss):
			c.log.Warn("cache load failed", zap.Error(err))
		}
	}
	return c.Refresh(ctx)
}

// Refresh regenerates and stores the document. A failed save is logged; the fresh document is still returned.
func (c *Cache) Refresh(ctx context.Context) (*Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.now()
	c.log.Info("refreshing document")

	doc, err := c.generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate document: %w", err)
	}
	doc.Timestamp = c.now().UTC()

	if err := c.store.Save(ctx, doc); err != nil {
		c.log.Error("cache save failed", zap.Error(err))
	}

	c.log.Info("document refreshed",
		zap.Duration("elapsed", c.now().Sub(start)),
		zap.Int("snapshots", len(doc.Snapshots)),
		zap.Strings("failed", doc.Failed))
	return doc, nil
}
