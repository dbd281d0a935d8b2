package leave

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
	"github.com/hostelhq/hostel/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("leave request")
	errBadRange = errors.New("end date must not be before start date")

	nowFunc = time.Now // mockable
)

var StoreConfig = store.Config{Slot: "leave-storage", Field: "leaveRequests", Version: 1}

// NewStore returns the LeaveStore, rehydrated from its slot.
func NewStore(ctx context.Context, backend core.SlotStorage, opts ...store.Option) (*store.Store[Request], error) {
	return store.New[Request](ctx, backend, StoreConfig, opts...)
}

// Students looks up the account a leave request belongs to.
type Students interface {
	GetByID(id string) (user.User, error)
}

type Service struct {
	store    *store.Store[Request]
	students Students
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(st *store.Store[Request], students Students, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{store: st, students: students, mailSvc: mailSvc, logger: logger}
}

// Create files a pending leave request on behalf of student.
func (svc *Service) Create(ctx context.Context, student user.User, nr NewRequest) (Request, error) {
	r := Request{
		ID:          uuid.New().String(),
		StudentID:   student.ID,
		StudentName: student.Name,
		RoomNumber:  student.RoomNumber,
		StartDate:   nr.StartDate,
		EndDate:     nr.EndDate,
		Reason:      nr.Reason,
		Destination: nr.Destination,
		Status:      StatusPending,
		RequestDate: nowFunc().UTC(),
	}
	return r, errors.Wrap(svc.store.Add(ctx, r), "adding leave request")
}

func (svc *Service) QueryAll() []Request {
	return svc.store.GetAll()
}

func (svc *Service) Filter(filter QueryFilter) []Request {
	return svc.store.Filter(filter.Match)
}

// StudentLeaves returns the requests filed by the given student, oldest first.
func (svc *Service) StudentLeaves(studentID string) []Request {
	return svc.Filter(QueryFilter{StudentID: studentID})
}

func (svc *Service) GetByID(id string) (Request, error) {
	r, ok := svc.store.Find(id)
	if !ok {
		return Request{}, ErrNotFound
	}
	return r, nil
}

// UpdateStatus records a decision on the request and notifies the student by email.
func (svc *Service) UpdateStatus(ctx context.Context, id, status string) (Request, error) {
	if _, err := svc.GetByID(id); err != nil {
		return Request{}, err
	}
	err := svc.store.Update(ctx, id, statusPatch{status: status, at: nowFunc().UTC()})
	r, _ := svc.store.Find(id)
	if err != nil {
		return r, errors.Wrap(err, "updating leave status")
	}
	if status != StatusPending {
		svc.notifyStudent(r)
	}
	return r, nil
}

func (svc *Service) notifyStudent(r Request) {
	student, err := svc.students.GetByID(r.StudentID)
	if err != nil {
		svc.logger.Warn("leave: no account for student " + r.StudentID)
		return
	}
	if student.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Leave request " + r.Status,
		TemplateName: "leave_status",
		TemplateData: map[string]string{
			"StudentName": r.StudentName,
			"Destination": r.Destination,
			"StartDate":   r.StartDate,
			"EndDate":     r.EndDate,
			"Status":      r.Status,
		},
	})
}

// Delete removes the request with the given id. An unknown id is a no-op.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return errors.Wrap(svc.store.Remove(ctx, id), "removing leave request")
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
