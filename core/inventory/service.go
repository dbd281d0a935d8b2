package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
)

var (
	ErrNotFound = core.NewNotFoundError("inventory item")

	nowFunc = time.Now // mockable
)

// StoreConfig describes the persistence slot of inventory items.
// Version 0 payloads may hold quantities as strings.
var StoreConfig = store.Config{
	Slot:    "inventory-storage",
	Field:   "inventoryItems",
	Version: 1,
	Migrations: map[int]store.Migration{
		0: quantityToInt,
	},
}

func quantityToInt(records []store.RawRecord) ([]store.RawRecord, error) {
	for _, rec := range records {
		s, ok := rec["quantity"].(string)
		if !ok {
			continue
		}
		qty, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Wrapf(err, "item %v: invalid quantity", rec["id"])
		}
		rec["quantity"] = qty
	}
	return records, nil
}

// NewStore returns the InventoryStore, rehydrated from its slot.
func NewStore(ctx context.Context, backend core.SlotStorage, opts ...store.Option) (*store.Store[Item], error) {
	return store.New[Item](ctx, backend, StoreConfig, opts...)
}

type Service struct {
	store *store.Store[Item]
}

func NewService(st *store.Store[Item]) *Service {
	return &Service{store: st}
}

func (svc *Service) Create(ctx context.Context, ni NewItem) (Item, error) {
	it := Item{
		ID:        uuid.New().String(),
		ItemName:  ni.ItemName,
		Quantity:  ni.Quantity,
		Location:  ni.Location(),
		Purpose:   ni.Purpose,
		Date:      ni.Date,
		Status:    StatusActive,
		CreatedAt: nowFunc().UTC(),
	}
	return it, errors.Wrap(svc.store.Add(ctx, it), "adding inventory item")
}

func (svc *Service) QueryAll() []Item {
	return svc.store.GetAll()
}

// Filter returns the items with the given status. An empty status matches all.
func (svc *Service) Filter(status string) []Item {
	status = core.CleanString(status, true /* lower */)
	return svc.store.Filter(func(it Item) bool {
		return status == "" || it.Status == status
	})
}

func (svc *Service) GetByID(id string) (Item, error) {
	it, ok := svc.store.Find(id)
	if !ok {
		return Item{}, ErrNotFound
	}
	return it, nil
}

func (svc *Service) Update(ctx context.Context, id string, ui UpdateItem) (Item, error) {
	if _, err := svc.GetByID(id); err != nil {
		return Item{}, err
	}
	err := svc.store.Update(ctx, id, ui)
	it, _ := svc.store.Find(id)
	return it, errors.Wrap(err, "updating inventory item")
}

// TotalQuantity sums the quantity of the items with the given status.
func (svc *Service) TotalQuantity(status string) int {
	var total int
	for _, it := range svc.Filter(status) {
		total += it.Quantity
	}
	return total
}

func (svc *Service) Count() int {
	return svc.store.Len()
}
