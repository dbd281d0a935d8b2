package maintenance

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/hostelhq/hostel/core"
)

// Statuses
const (
	StatusPending    = "pending"
	StatusInProgress = "inProgress"
	StatusCompleted  = "completed"
)

var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

// Request is a repair request filed by a student for their room.
type Request struct {
	ID          string    `json:"id"`
	RoomNumber  string    `json:"roomNumber"`
	StudentName string    `json:"studentName"`
	StudentID   string    `json:"studentId"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Date        time.Time `json:"date"`
	ResolvedAt  null.Time `json:"resolvedAt"`
}

func (r Request) RecordID() string { return r.ID }

func (r *Request) ApplyDefaults() {
	if r.Status == "" {
		r.Status = StatusPending
	}
}

type NewRequest struct {
	Category    string `json:"category" validate:"required"`
	Description string `json:"description" validate:"required"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Category = core.CleanString(nr.Category, true /* lower */)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending inProgress completed"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type statusPatch struct {
	status string
	at     time.Time
}

func (p statusPatch) Apply(r *Request) {
	r.Status = p.status
	if p.status == StatusCompleted {
		r.ResolvedAt = null.TimeFrom(p.at)
	} else {
		r.ResolvedAt = null.Time{}
	}
}
