package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hostelhq/hostel/core"
)

const StatusActive = "active"

// Item records the usage of an inventory item somewhere in the hostel.
type Item struct {
	ID        string    `json:"id"`
	ItemName  string    `json:"itemName"`
	Quantity  int       `json:"quantity"`
	Location  string    `json:"location"` // <block>-<floor>-<room>
	Purpose   string    `json:"purpose"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func (it Item) RecordID() string { return it.ID }

func (it *Item) ApplyDefaults() {
	if it.Status == "" {
		it.Status = StatusActive
	}
}

type NewItem struct {
	ItemName string `json:"itemName" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	Block    string `json:"block" validate:"required,oneof=A B C"`
	Floor    string `json:"floor" validate:"required,oneof=0 1 2"`
	Room     string `json:"room" validate:"required"` // room number or shared space, e.g. "Bathroom"
	Purpose  string `json:"purpose" validate:"required"`
	Date     string `json:"date" validate:"required,date"`
}

func (ni *NewItem) Validate(validate *validator.Validate) error {
	ni.ItemName = core.CleanString(ni.ItemName)
	ni.Block = strings.ToUpper(core.CleanString(ni.Block))
	ni.Floor = core.CleanString(ni.Floor)
	ni.Room = core.CleanString(ni.Room)
	ni.Purpose = core.CleanString(ni.Purpose)
	ni.Date = core.CleanString(ni.Date)
	return validate.Struct(ni)
}

func (ni NewItem) Location() string {
	return fmt.Sprintf("%s-%s-%s", ni.Block, ni.Floor, ni.Room)
}

// UpdateItem is a partial update: nil fields are left untouched.
type UpdateItem struct {
	ItemName *string `json:"itemName" validate:"omitempty,min=1"`
	Quantity *int    `json:"quantity" validate:"omitempty,min=1"`
	Location *string `json:"location" validate:"omitempty,min=1"`
	Purpose  *string `json:"purpose"`
	Date     *string `json:"date" validate:"omitempty,date"`
	Status   *string `json:"status" validate:"omitempty,min=1"`
}

func (ui *UpdateItem) Validate(validate *validator.Validate) error {
	for _, s := range []*string{ui.ItemName, ui.Location, ui.Purpose, ui.Date, ui.Status} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if ui.Status != nil {
		*ui.Status = strings.ToLower(*ui.Status)
	}
	return validate.Struct(ui)
}

func (ui UpdateItem) Apply(it *Item) {
	if ui.ItemName != nil {
		it.ItemName = *ui.ItemName
	}
	if ui.Quantity != nil {
		it.Quantity = *ui.Quantity
	}
	if ui.Location != nil {
		it.Location = *ui.Location
	}
	if ui.Purpose != nil {
		it.Purpose = *ui.Purpose
	}
	if ui.Date != nil {
		it.Date = *ui.Date
	}
	if ui.Status != nil {
		it.Status = *ui.Status
	}
}
