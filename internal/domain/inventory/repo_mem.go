package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/pkg/pagination"
)

type repoMem struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Item
}

// NewRepoMem returns an in-memory Repository seeded with items.
func NewRepoMem(seed ...*Item) Repository {
	r := &repoMem{items: make(map[uuid.UUID]*Item)}
	for _, it := range seed {
		_ = r.Create(context.Background(), it.clone())
	}
	return r
}

func (r *repoMem) Create(_ context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if _, exists := r.items[item.ID]; exists {
		return apperr.Conflict("item %s already exists", item.ID)
	}
	if r.skuTaken(item.SKU, item.ID) {
		return apperr.Conflict("sku %s is already in use", item.SKU)
	}
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	r.items[item.ID] = item.clone()
	return nil
}

func (r *repoMem) skuTaken(sku string, except uuid.UUID) bool {
	for id, existing := range r.items {
		if id != except && strings.EqualFold(existing.SKU, sku) {
			return true
		}
	}
	return false
}

func (r *repoMem) GetByID(_ context.Context, id uuid.UUID) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	return item.clone(), nil
}

func (r *repoMem) Update(_ context.Context, item *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[item.ID]
	if !ok {
		return apperr.NotFound("item")
	}
	if r.skuTaken(item.SKU, item.ID) {
		return apperr.Conflict("sku %s is already in use", item.SKU)
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = time.Now().UTC()
	r.items[item.ID] = item.clone()
	return nil
}

func (r *repoMem) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperr.NotFound("item")
	}
	delete(r.items, id)
	return nil
}

func (r *repoMem) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Item, int, error) {
	r.mu.RLock()
	var matched []*Item
	for _, it := range r.items {
		if filter.matches(it) {
			matched = append(matched, it.clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].SKU < matched[j].SKU })
	return pagination.Apply(matched, pagination.Params{Limit: limit, Offset: offset}), len(matched), nil
}

func (r *repoMem) Adjust(_ context.Context, id uuid.UUID, delta int) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperr.NotFound("item")
	}
	if item.Quantity+delta < 0 {
		return nil, apperr.Conflict("only %d %s of %s in stock", item.Quantity, item.Unit, item.SKU)
	}
	item.Quantity += delta
	item.UpdatedAt = time.Now().UTC()
	return item.clone(), nil
}
