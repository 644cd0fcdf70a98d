// Package feed keeps the client's accumulated view of the discover feed.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

// Fetcher loads one feed page. rpc.Client satisfies it.
type Fetcher interface {
	GetDiscoverList(ctx context.Context, q service.DiscoverQuery) (*service.DiscoverPage, error)
}

// Filter is the user's current narrowing of the feed.
type Filter struct {
	Type          string
	Rating        *service.RatingFilter
	SearchKeyword string
}

// State is a snapshot of the cache.
type State struct {
	Items   []model.PublishedRecord
	Page    int // next page to load
	HasMore bool
	Filter  Filter
	Loading bool
}

// Cache accumulates feed pages for the current filter. Pages are loaded
// one at a time; changing the filter discards everything loaded so far,
// including answers to requests still in flight.
type Cache struct {
	fetcher  Fetcher
	pageSize int
	logger   *slog.Logger

	mu         sync.Mutex
	items      []model.PublishedRecord
	page       int
	hasMore    bool
	filter     Filter
	loading    bool
	generation uint64
}

func NewCache(fetcher Fetcher, pageSize int, logger *slog.Logger) *Cache {
	if pageSize <= 0 {
		pageSize = service.DefaultPageSize
	}
	return &Cache{
		fetcher:  fetcher,
		pageSize: pageSize,
		logger:   logger,
		items:    []model.PublishedRecord{},
		page:     1,
		hasMore:  true,
		filter:   Filter{Type: service.FilterAll},
	}
}

// State returns a copy of the current state.
func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Items:   append([]model.PublishedRecord{}, c.items...),
		Page:    c.page,
		HasMore: c.hasMore,
		Filter:  c.filter,
		Loading: c.loading,
	}
}

// LoadMore fetches the next page and appends it. It does nothing while a
// load is in flight or once the feed is exhausted. The page only advances
// after a successful fetch, so a failed load is retried by calling again.
func (c *Cache) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	gen := c.generation
	q := c.queryLocked()
	c.mu.Unlock()

	page, err := c.fetcher.GetDiscoverList(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// The filter changed while this request was in flight.
		c.logger.Debug("discarding stale feed page", slog.Int("page", q.Page))
		return nil
	}
	c.loading = false
	if err != nil {
		return fmt.Errorf("feed: loading page %d: %w", q.Page, err)
	}

	c.items = append(c.items, page.Data...)
	c.hasMore = page.HasMore
	c.page = q.Page + 1
	return nil
}

// ChangeFilter resets the cache to f and loads its first page.
func (c *Cache) ChangeFilter(ctx context.Context, f Filter) error {
	if f.Type == "" {
		f.Type = service.FilterAll
	}

	c.mu.Lock()
	c.generation++
	c.filter = f
	c.items = []model.PublishedRecord{}
	c.page = 1
	c.hasMore = true
	c.loading = false
	c.mu.Unlock()

	return c.LoadMore(ctx)
}

// Refresh reloads the first page of the current filter.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	f := c.filter
	c.mu.Unlock()
	return c.ChangeFilter(ctx, f)
}

func (c *Cache) queryLocked() service.DiscoverQuery {
	return service.DiscoverQuery{
		Page:          c.page,
		PageSize:      c.pageSize,
		FilterType:    c.filter.Type,
		RatingFilter:  c.filter.Rating,
		SearchKeyword: c.filter.SearchKeyword,
	}
}
