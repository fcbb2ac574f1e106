package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	CategoryMedication = "medication"
	CategorySupply     = "supply"
	CategoryEquipment  = "equipment"
)

var categories = []string{CategoryMedication, CategorySupply, CategoryEquipment}

func validCategory(c string) bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

// Item is a stocked medication, supply or piece of equipment.
type Item struct {
	ID           uuid.UUID  `json:"id" yaml:"id"`
	SKU          string     `json:"sku" yaml:"sku"`
	Name         string     `json:"name" yaml:"name"`
	Category     string     `json:"category" yaml:"category"`
	Unit         string     `json:"unit" yaml:"unit"`
	Quantity     int        `json:"quantity" yaml:"quantity"`
	ReorderLevel int        `json:"reorder_level" yaml:"reorder_level"`
	Location     string     `json:"location,omitempty" yaml:"location"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" yaml:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time  `json:"updated_at" yaml:"-"`
}

func (i *Item) clone() *Item {
	c := *i
	if i.ExpiresAt != nil {
		t := *i.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

// IsLow reports whether the item needs reordering. Items without their own
// reorder level fall back to threshold.
func (i *Item) IsLow(threshold int) bool {
	level := i.ReorderLevel
	if level <= 0 {
		level = threshold
	}
	return i.Quantity <= level
}

// Adjustment is the body of POST /inventory/:id/adjust.
type Adjustment struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

// ListFilter narrows an item list. Zero fields match everything.
type ListFilter struct {
	Query    string
	Category string
}

func (f ListFilter) matches(i *Item) bool {
	if f.Category != "" && i.Category != f.Category {
		return false
	}
	if q := strings.ToLower(f.Query); q != "" {
		if !strings.Contains(strings.ToLower(i.Name), q) && !strings.Contains(strings.ToLower(i.SKU), q) {
			return false
		}
	}
	return true
}

// Page is one page of an item listing.
type Page struct {
	Items []*Item
	Total int
}

// Summary holds aggregate stock figures.
type Summary struct {
	Items      int            `json:"items"`
	Units      int            `json:"units"`
	ByCategory map[string]int `json:"by_category"`
	LowStock   int            `json:"low_stock"`
	OutOfStock int            `json:"out_of_stock"`
}
