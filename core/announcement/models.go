package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hostelhq/hostel/core"
)

// Categories
const (
	CategoryEvent       = "event"
	CategoryMaintenance = "maintenance"
	CategoryAcademic    = "academic"
	CategorySports      = "sports"
)

var Categories = []string{CategoryEvent, CategoryMaintenance, CategoryAcademic, CategorySports}

type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (a Announcement) RecordID() string { return a.ID }

type NewAnnouncement struct {
	Title       string `json:"title" validate:"required"`
	Category    string `json:"category" validate:"required,oneof=event maintenance academic sports"`
	Date        string `json:"date" validate:"required,date"`
	Description string `json:"description" validate:"required"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Category = core.CleanString(na.Category, true /* lower */)
	na.Date = core.CleanString(na.Date)
	na.Description = core.CleanString(na.Description)
	return validate.Struct(na)
}

// UpdateAnnouncement is a partial update: nil fields are left untouched.
type UpdateAnnouncement struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Category    *string `json:"category" validate:"omitempty,oneof=event maintenance academic sports"`
	Date        *string `json:"date" validate:"omitempty,date"`
	Description *string `json:"description" validate:"omitempty,min=1"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	clean := func(s *string, lower ...bool) *string {
		if s == nil {
			return nil
		}
		c := core.CleanString(*s, lower...)
		return &c
	}
	ua.Title = clean(ua.Title)
	ua.Category = clean(ua.Category, true /* lower */)
	ua.Date = clean(ua.Date)
	ua.Description = clean(ua.Description)
	return validate.Struct(ua)
}

func (ua UpdateAnnouncement) Apply(a *Announcement) {
	if ua.Title != nil {
		a.Title = *ua.Title
	}
	if ua.Category != nil {
		a.Category = *ua.Category
	}
	if ua.Date != nil {
		a.Date = *ua.Date
	}
	if ua.Description != nil {
		a.Description = *ua.Description
	}
}
