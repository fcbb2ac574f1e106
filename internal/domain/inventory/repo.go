package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence interface for stock items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Item, int, error)
	// Adjust changes the quantity by delta in one step. It fails with a
	// conflict when the result would be negative.
	Adjust(ctx context.Context, id uuid.UUID, delta int) (*Item, error)
}
