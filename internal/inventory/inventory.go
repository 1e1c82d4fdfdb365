// Package inventory implements check-in and tracking of stored and
// truck-loaded items.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("inventory: invalid input")
	ErrNotFound     = errors.New("inventory: not found")
	ErrConflict     = errors.New("inventory: resource conflict")
)

const (
	StatusStored     = "stored"
	StatusLoaded     = "loaded"
	StatusDispatched = "dispatched"
)

// Item is a checked-in inventory record.
type Item struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Description string    `json:"description,omitempty"`
	Quantity    int       `json:"quantity"`
	Location    string    `json:"location"`
	TruckRef    string    `json:"truck_ref,omitempty"`
	Status      string    `json:"status"`
	CheckedInBy string    `json:"checked_in_by"`
	CheckedInAt time.Time `json:"checked_in_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CheckIn carries validated input for item creation.
type CheckIn struct {
	SKU         string
	Description string
	Quantity    int
	Location    string
	TruckRef    string
	CheckedInBy string
}

// Update applies partial changes; nil fields are left untouched.
type Update struct {
	Description *string
	Quantity    *int
	Location    *string
	TruckRef    *string
	Status      *string
}

// Page is a limit/offset window for listings.
type Page struct {
	Number int
	Size   int
}

// Offset converts the page window to a SQL offset.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Store describes the persistence operations the service needs.
type Store interface {
	CreateItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context, page Page) ([]Item, int, error)
	UpdateItem(ctx context.Context, id string, upd Update) (Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Service validates inventory operations before hitting the store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs the inventory service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("inventory: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// CheckIn records a new item at a storage location or on a truck.
func (s *Service) CheckIn(ctx context.Context, in CheckIn) (Item, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return Item{}, fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	in.Location = strings.TrimSpace(in.Location)
	if in.Location == "" {
		return Item{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return Item{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CheckedInBy) == "" {
		return Item{}, fmt.Errorf("%w: checked_in_by is required", ErrInvalidInput)
	}

	now := s.now().UTC()
	status := StatusStored
	if strings.TrimSpace(in.TruckRef) != "" {
		status = StatusLoaded
	}
	return s.store.CreateItem(ctx, Item{
		SKU:         in.SKU,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		Location:    in.Location,
		TruckRef:    strings.TrimSpace(in.TruckRef),
		Status:      status,
		CheckedInBy: strings.TrimSpace(in.CheckedInBy),
		CheckedInAt: now,
		UpdatedAt:   now,
	})
}

// Get returns a single item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	return s.store.GetItem(ctx, id)
}

// List returns a page of items plus the total count.
func (s *Service) List(ctx context.Context, page Page) ([]Item, int, error) {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size < 1 {
		page.Size = 20
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return s.store.ListItems(ctx, page)
}

// Update applies a partial update after validating the changed fields.
func (s *Service) Update(ctx context.Context, id string, upd Update) (Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	if upd.Quantity != nil && *upd.Quantity < 1 {
		return Item{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}
	if upd.Location != nil {
		loc := strings.TrimSpace(*upd.Location)
		if loc == "" {
			return Item{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
		}
		upd.Location = &loc
	}
	if upd.Status != nil {
		status := strings.TrimSpace(strings.ToLower(*upd.Status))
		switch status {
		case StatusStored, StatusLoaded, StatusDispatched:
		default:
			return Item{}, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
		upd.Status = &status
	}
	return s.store.UpdateItem(ctx, id, upd)
}

// Delete removes an item record.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: item id is required", ErrInvalidInput)
	}
	return s.store.DeleteItem(ctx, id)
}
