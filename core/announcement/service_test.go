package announcement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.SlotStorage) {
	t.Helper()
	backend := memory.NewSlotStorage()
	st, err := NewStore(context.Background(), backend)
	require.NoError(t, err)
	return NewService(st), backend
}

func TestNewAnnouncement_Validate(t *testing.T) {
	validate := core.NewValidator(core.NewTranslator())

	tests := []struct {
		name       string
		na         NewAnnouncement
		wantFields []string
	}{
		{name: "empty", na: NewAnnouncement{}, wantFields: []string{"title", "category", "date", "description"}},
		{name: "unknown category", na: NewAnnouncement{Title: "t", Category: "party", Date: "2024-03-01", Description: "d"}, wantFields: []string{"category"}},
		{name: "bad date", na: NewAnnouncement{Title: "t", Category: "event", Date: "01/03/2024", Description: "d"}, wantFields: []string{"date"}},
		{name: "valid", na: NewAnnouncement{Title: " Water cut ", Category: "Maintenance", Date: "2024-03-01", Description: "From 9 to 11"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(validate)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, "Water cut", tt.na.Title)
				assert.Equal(t, CategoryMaintenance, tt.na.Category)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs))
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	t.Run("update", func(t *testing.T) {
		bad := "nope"
		ua := UpdateAnnouncement{Category: &bad}
		assert.Error(t, ua.Validate(validate))

		title := "  New title "
		ua = UpdateAnnouncement{Title: &title}
		require.NoError(t, ua.Validate(validate))
		assert.Equal(t, "New title", *ua.Title)
	})
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc, backend := newService(t)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	var created []Announcement
	for i, na := range []NewAnnouncement{
		{Title: "Football", Category: CategorySports, Date: "2024-03-02", Description: "Final"},
		{Title: "Exams", Category: CategoryAcademic, Date: "2024-03-10", Description: "Timetable"},
		{Title: "Derby", Category: CategorySports, Date: "2024-03-12", Description: "Block A vs B"},
	} {
		nowFunc = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		a, err := svc.Create(ctx, na)
		require.NoError(t, err)
		assert.NotEmpty(t, a.ID)
		created = append(created, a)
	}
	nowFunc = time.Now

	assert.Equal(t, created, svc.QueryAll())
	assert.Equal(t, 3, svc.Count())

	t.Run("filter", func(t *testing.T) {
		assert.Equal(t, []Announcement{created[0], created[2]}, svc.Filter(" SPORTS"))
		assert.Equal(t, created, svc.Filter(""))
		assert.Empty(t, svc.Filter(CategoryEvent))
	})

	t.Run("latest", func(t *testing.T) {
		assert.Equal(t, []Announcement{created[2], created[1]}, svc.Latest(2))
		assert.Len(t, svc.Latest(10), 3)
	})

	t.Run("update merges", func(t *testing.T) {
		desc := "Final, kick-off at 4pm"
		got, err := svc.Update(ctx, created[0].ID, UpdateAnnouncement{Description: &desc})
		require.NoError(t, err)
		want := created[0]
		want.Description = desc
		assert.Equal(t, want, got)

		_, err = svc.Update(ctx, "999", UpdateAnnouncement{Description: &desc})
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, created[1].ID))
		require.NoError(t, svc.Delete(ctx, "999"))
		assert.Len(t, svc.QueryAll(), 2)
		_, err := svc.GetByID(created[1].ID)
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("persisted", func(t *testing.T) {
		st, err := NewStore(ctx, backend)
		require.NoError(t, err)
		assert.Equal(t, svc.QueryAll(), NewService(st).QueryAll())
	})
}

func TestStore_legacyPayload(t *testing.T) {
	backend := memory.NewSlotStorage()
	payload := `{"state":{"announcements":[{"id":"1700000000000","title":"Welcome","category":"event","date":"2024-01-15","description":"Hi","createdAt":"2024-01-10T09:00:00.000Z"}]},"version":0}`
	require.NoError(t, backend.Save(context.Background(), StoreConfig.Slot, []byte(payload)))

	st, err := NewStore(context.Background(), backend)
	require.NoError(t, err)
	all := NewService(st).QueryAll()
	require.Len(t, all, 1)
	assert.Equal(t, "1700000000000", all[0].ID)
	assert.Equal(t, 2024, all[0].CreatedAt.Year())
}
