package announcement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
)

var (
	ErrNotFound = core.NewNotFoundError("announcement")

	nowFunc = time.Now // mockable
)

var StoreConfig = store.Config{Slot: "announcement-storage", Field: "announcements", Version: 1}

// NewStore returns the AnnouncementStore, rehydrated from its slot.
func NewStore(ctx context.Context, backend core.SlotStorage, opts ...store.Option) (*store.Store[Announcement], error) {
	return store.New[Announcement](ctx, backend, StoreConfig, opts...)
}

type Service struct {
	store *store.Store[Announcement]
}

func NewService(st *store.Store[Announcement]) *Service {
	return &Service{store: st}
}

func (svc *Service) Create(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	a := Announcement{
		ID:          uuid.New().String(),
		Title:       na.Title,
		Category:    na.Category,
		Date:        na.Date,
		Description: na.Description,
		CreatedAt:   nowFunc().UTC(),
	}
	return a, errors.Wrap(svc.store.Add(ctx, a), "adding announcement")
}

func (svc *Service) QueryAll() []Announcement {
	return svc.store.GetAll()
}

// Filter returns the announcements of the given category. An empty category matches all.
func (svc *Service) Filter(category string) []Announcement {
	category = core.CleanString(category, true /* lower */)
	return svc.store.Filter(func(a Announcement) bool {
		return category == "" || a.Category == category
	})
}

// Latest returns at most n announcements, most recently created first.
func (svc *Service) Latest(n int) []Announcement {
	all := svc.store.GetAll()
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func (svc *Service) GetByID(id string) (Announcement, error) {
	a, ok := svc.store.Find(id)
	if !ok {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	if _, err := svc.GetByID(id); err != nil {
		return Announcement{}, err
	}
	err := svc.store.Update(ctx, id, ua)
	a, _ := svc.store.Find(id)
	return a, errors.Wrap(err, "updating announcement")
}

// Delete removes the announcement with the given id. An unknown id is a no-op.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return errors.Wrap(svc.store.Remove(ctx, id), "removing announcement")
}

func (svc *Service) Count() int {
	return svc.store.Len()
}
