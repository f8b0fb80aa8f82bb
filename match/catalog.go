package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/dealflow/memo"
	"github.com/c360studio/dealflow/store"
)

// defaultCatalogTTL bounds how stale the in-process investor cache may be
// before the next Investors call reloads from the store.
const defaultCatalogTTL = 5 * time.Minute

// Catalog caches the investor list from the document store, with lazy
// refresh and an optional fsnotify watch on a catalog file.
type Catalog struct {
	docs   store.Documents
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	cached   []*memo.Investor
	loadedAt time.Time
}

// NewCatalog creates an investor catalog over the document store.
func NewCatalog(docs store.Documents, ttl time.Duration, logger *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{docs: docs, ttl: ttl, logger: logger}
}

// Investors returns the catalog, reloading from the store when the cache
// is empty or stale.
func (c *Catalog) Investors(ctx context.Context) ([]*memo.Investor, error) {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.loadedAt) < c.ttl {
		out := c.cached
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	investors, err := c.docs.ListInvestors(ctx)
	if err != nil {
		c.mu.RLock()
		stale := c.cached
		c.mu.RUnlock()
		if stale != nil {
			c.logger.Warn("Catalog refresh failed, serving stale cache", "error", err)
			return stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.cached = investors
	c.loadedAt = time.Now()
	c.mu.Unlock()
	return investors, nil
}

// Invalidate drops the cache; the next Investors call reloads.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// WatchFile watches a catalog JSON file and upserts its entries into the
// store on every write, then invalidates the cache. Blocks until ctx is
// done; run it in its own goroutine.
func (c *Catalog) WatchFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	c.logger.Info("Watching investor catalog file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := c.reloadFile(ctx, path); err != nil {
				c.logger.Error("Catalog file reload failed", "path", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("Catalog watcher error", "error", err)
		}
	}
}

func (c *Catalog) reloadFile(ctx context.Context, path string) error {
	investors, err := LoadFile(path)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, inv := range investors {
		if inv.UploadedAt.IsZero() {
			inv.UploadedAt = now
		}
		inv.LastUpdated = now
		if err := c.docs.PutInvestor(ctx, inv); err != nil {
			return fmt.Errorf("upsert investor %s: %w", inv.ID, err)
		}
	}
	c.Invalidate()
	c.logger.Info("Investor catalog reloaded", "path", path, "investors", len(investors))
	return nil
}

// LoadFile parses a catalog JSON file: either a bare array of investors or
// an object with an "investors" key.
func LoadFile(path string) ([]*memo.Investor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var investors []*memo.Investor
	if err := json.Unmarshal(data, &investors); err != nil {
		var wrapped struct {
			Investors []*memo.Investor `json:"investors"`
		}
		if err2 := json.Unmarshal(data, &wrapped); err2 != nil || wrapped.Investors == nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		investors = wrapped.Investors
	}

	for i, inv := range investors {
		if inv.ID == "" {
			return nil, fmt.Errorf("catalog entry %d has no investor_id", i)
		}
	}
	return investors, nil
}
