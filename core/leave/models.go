package leave

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/hostelhq/hostel/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

var Statuses = []string{StatusPending, StatusApproved, StatusRejected}

var errEndBeforeStart = core.NewValidationError(
	errBadRange, core.FieldError{Field: "endDate", Error: errBadRange.Error()},
)

type Request struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	RoomNumber  string    `json:"roomNumber"`
	StartDate   string    `json:"startDate"` // YYYY-MM-DD
	EndDate     string    `json:"endDate"`   // YYYY-MM-DD
	Reason      string    `json:"reason"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	RequestDate time.Time `json:"requestDate"`
	DecidedAt   null.Time `json:"decidedAt"`
}

func (r Request) RecordID() string { return r.ID }

func (r *Request) ApplyDefaults() {
	if r.Status == "" {
		r.Status = StatusPending
	}
}

type NewRequest struct {
	StartDate   string `json:"startDate" validate:"required,date"`
	EndDate     string `json:"endDate" validate:"required,date"`
	Reason      string `json:"reason" validate:"required"`
	Destination string `json:"destination" validate:"required"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.StartDate = core.CleanString(nr.StartDate)
	nr.EndDate = core.CleanString(nr.EndDate)
	nr.Reason = core.CleanString(nr.Reason)
	nr.Destination = core.CleanString(nr.Destination)
	if err := validate.Struct(nr); err != nil {
		return err
	}

	start, _ := core.ParseDate(nr.StartDate)
	end, _ := core.ParseDate(nr.EndDate)
	if end.Before(start) {
		return errEndBeforeStart
	}
	return nil
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	return validate.Struct(us)
}

// statusPatch sets the status and stamps or clears the decision time.
type statusPatch struct {
	status string
	at     time.Time
}

func (p statusPatch) Apply(r *Request) {
	r.Status = p.status
	if p.status == StatusPending {
		r.DecidedAt = null.Time{}
	} else {
		r.DecidedAt = null.TimeFrom(p.at)
	}
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	Status    string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf QueryFilter) Match(r Request) bool {
	if qf.StudentID != "" && r.StudentID != qf.StudentID {
		return false
	}
	if qf.Status != "" && r.Status != qf.Status {
		return false
	}
	return true
}
