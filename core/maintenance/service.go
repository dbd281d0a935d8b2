package maintenance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
	"github.com/hostelhq/hostel/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("maintenance request")
	ErrNoRoom   = errors.New("student has no room assigned")

	nowFunc = time.Now // mockable
)

var StoreConfig = store.Config{Slot: "maintenance-storage", Field: "requests", Version: 1}

// NewStore returns the MaintenanceStore, rehydrated from its slot.
func NewStore(ctx context.Context, backend core.SlotStorage, opts ...store.Option) (*store.Store[Request], error) {
	return store.New[Request](ctx, backend, StoreConfig, opts...)
}

type Service struct {
	store *store.Store[Request]
}

func NewService(st *store.Store[Request]) *Service {
	return &Service{store: st}
}

// Create files a pending request for the room of student.
func (svc *Service) Create(ctx context.Context, student user.User, nr NewRequest) (Request, error) {
	if student.RoomNumber == "" {
		return Request{}, core.NewValidationError(ErrNoRoom, core.FieldError{Field: "roomNumber", Error: ErrNoRoom.Error()})
	}
	r := Request{
		ID:          uuid.New().String(),
		RoomNumber:  student.RoomNumber,
		StudentName: student.Name,
		StudentID:   student.ID,
		Category:    nr.Category,
		Description: nr.Description,
		Status:      StatusPending,
		Date:        nowFunc().UTC(),
	}
	return r, errors.Wrap(svc.store.Add(ctx, r), "adding maintenance request")
}

func (svc *Service) QueryAll() []Request {
	return svc.store.GetAll()
}

// RoomRequests returns the maintenance history of a room, oldest first.
func (svc *Service) RoomRequests(room string) []Request {
	room = strings.ToUpper(core.CleanString(room))
	return svc.store.Filter(func(r Request) bool {
		return room == "" || r.RoomNumber == room
	})
}

func (svc *Service) StudentRequests(studentID string) []Request {
	return svc.store.Filter(func(r Request) bool { return r.StudentID == studentID })
}

func (svc *Service) GetByID(id string) (Request, error) {
	r, ok := svc.store.Find(id)
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// UpdateStatus moves the request to status, stamping the resolution time on completion.
func (svc *Service) UpdateStatus(ctx context.Context, id, status string) (Request, error) {
	if _, err := svc.GetByID(id); err != nil {
		return Request{}, err
	}
	err := svc.store.Update(ctx, id, statusPatch{status: status, at: nowFunc().UTC()})
	r, _ := svc.store.Find(id)
	return r, errors.Wrap(err, "updating maintenance status")
}

// CountByStatus returns the number of requests per status.
func (svc *Service) CountByStatus() map[string]int {
	counts := make(map[string]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, r := range svc.store.GetAll() {
		counts[r.Status]++
	}
	return counts
}
