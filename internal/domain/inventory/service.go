package inventory

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/pkg/pagination"
)

// CachePrefix namespaces inventory entries in the data cache.
const CachePrefix = "inventory"

// DefaultLowStockThreshold applies to items without a reorder level when no
// ThresholdFunc is configured.
const DefaultLowStockThreshold = 10

var invalidateOnWrite = []string{CachePrefix + ":*", "dashboard:*", "reports:*"}

// ThresholdFunc returns the current hospital-wide low-stock threshold.
type ThresholdFunc func() int

type Service struct {
	repo      Repository
	cache     *cache.Cache[any]
	ttl       time.Duration
	threshold ThresholdFunc
	logger    zerolog.Logger
}

// NewService creates the inventory service. threshold may be nil.
func NewService(repo Repository, data *cache.Cache[any], ttl time.Duration, threshold ThresholdFunc, logger zerolog.Logger) *Service {
	if threshold == nil {
		threshold = func() int { return DefaultLowStockThreshold }
	}
	return &Service{repo: repo, cache: data, ttl: ttl, threshold: threshold, logger: logger}
}

func (s *Service) CreateItem(ctx context.Context, item *Item) error {
	normalize(item)
	if err := validate(item); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// GetItem returns a cached item. Callers must not modify it.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	key := cache.GenerateKey(CachePrefix, map[string]string{"id": id.String()})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Item, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// UpdateItem replaces an item's descriptive fields. Quantity only changes
// through AdjustStock.
func (s *Service) UpdateItem(ctx context.Context, item *Item) error {
	existing, err := s.repo.GetByID(ctx, item.ID)
	if err != nil {
		return err
	}
	item.Quantity = existing.Quantity
	normalize(item)
	if err := validate(item); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

func (s *Service) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)
	return nil
}

// AdjustStock adds delta (negative to dispense) to an item's quantity.
func (s *Service) AdjustStock(ctx context.Context, id uuid.UUID, adj Adjustment) (*Item, error) {
	if adj.Delta == 0 {
		return nil, apperr.Validation("delta must not be zero")
	}
	item, err := s.repo.Adjust(ctx, id, adj.Delta)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePatterns(invalidateOnWrite...)

	s.logger.Info().
		Str("item_id", id.String()).
		Str("sku", item.SKU).
		Int("delta", adj.Delta).
		Int("quantity", item.Quantity).
		Str("reason", adj.Reason).
		Msg("stock adjusted")
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, filter ListFilter, limit, offset int) (*Page, error) {
	page := pagination.Params{Limit: limit, Offset: offset}
	key := cache.GenerateKey(CachePrefix, cache.Merge(map[string]string{
		"q":        filter.Query,
		"category": filter.Category,
	}, page.KeyParams()))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (*Page, error) {
		items, total, err := s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			return nil, err
		}
		return &Page{Items: items, Total: total}, nil
	})
}

// LowStock lists items at or below their reorder level. The threshold is
// part of the cache key so a settings change is picked up immediately.
func (s *Service) LowStock(ctx context.Context) ([]*Item, error) {
	threshold := s.threshold()
	key := cache.GenerateKey(CachePrefix, map[string]string{
		"view":      "low-stock",
		"threshold": strconv.Itoa(threshold),
	})
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) ([]*Item, error) {
		all, _, err := s.repo.List(ctx, ListFilter{}, 0, 0)
		if err != nil {
			return nil, err
		}
		low := make([]*Item, 0)
		for _, it := range all {
			if it.IsLow(threshold) {
				low = append(low, it)
			}
		}
		return low, nil
	})
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	all, total, err := s.repo.List(ctx, ListFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}
	threshold := s.threshold()
	sum := &Summary{Items: total, ByCategory: map[string]int{}}
	for _, it := range all {
		sum.Units += it.Quantity
		sum.ByCategory[it.Category]++
		if it.IsLow(threshold) {
			sum.LowStock++
		}
		if it.Quantity == 0 {
			sum.OutOfStock++
		}
	}
	return sum, nil
}

func normalize(item *Item) {
	item.SKU = strings.ToUpper(strings.TrimSpace(item.SKU))
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.ToLower(strings.TrimSpace(item.Category))
	item.Unit = strings.TrimSpace(item.Unit)
}

func validate(item *Item) error {
	if item.SKU == "" {
		return apperr.Validation("sku is required")
	}
	if item.Name == "" {
		return apperr.Validation("name is required")
	}
	if !validCategory(item.Category) {
		return apperr.Validation("category must be one of %s", strings.Join(categories, ", "))
	}
	if item.Quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	if item.ReorderLevel < 0 {
		return apperr.Validation("reorder_level must not be negative")
	}
	return nil
}
