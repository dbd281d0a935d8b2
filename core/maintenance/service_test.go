package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/user"
	"github.com/hostelhq/hostel/storage/memory"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	validate := core.NewValidator(core.NewTranslator())
	backend := memory.NewSlotStorage()
	st, err := NewStore(ctx, backend)
	require.NoError(t, err)
	svc := NewService(st)

	alice := user.User{ID: "S1", Name: "Alice", RoomNumber: "A101"}
	bob := user.User{ID: "S2", Name: "Bob", RoomNumber: "B202"}
	carol := user.User{ID: "S3", Name: "Carol", RoomNumber: "A101"}

	nr := NewRequest{Category: " Plumbing ", Description: "Leaking tap"}
	require.NoError(t, nr.Validate(validate))
	assert.Equal(t, "plumbing", nr.Category)
	assert.Error(t, (&NewRequest{Category: "electrical"}).Validate(validate))

	r1, err := svc.Create(ctx, alice, nr)
	require.NoError(t, err)
	r2, err := svc.Create(ctx, bob, NewRequest{Category: "electrical", Description: "No power"})
	require.NoError(t, err)
	r3, err := svc.Create(ctx, carol, NewRequest{Category: "furniture", Description: "Broken bed"})
	require.NoError(t, err)

	assert.Equal(t, StatusPending, r1.Status)
	assert.Equal(t, "A101", r1.RoomNumber)

	_, err = svc.Create(ctx, user.User{ID: "S4"}, nr)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, ErrNoRoom, vErr.Err)

	assert.Equal(t, []Request{r1, r3}, svc.RoomRequests("a101"))
	assert.Equal(t, []Request{r2}, svc.StudentRequests("S2"))
	assert.Len(t, svc.RoomRequests(""), 3)

	tests := []struct {
		name         string
		status       string
		wantResolved bool
	}{
		{name: "in progress", status: StatusInProgress},
		{name: "completed", status: StatusCompleted, wantResolved: true},
		{name: "reopened", status: StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.UpdateStatus(ctx, r2.ID, tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.wantResolved, got.ResolvedAt.Valid)
			assert.Equal(t, r2.Description, got.Description)
		})
	}

	_, err = svc.UpdateStatus(ctx, "999", StatusCompleted)
	assert.True(t, core.IsNotFound(err))

	_, err = svc.UpdateStatus(ctx, r3.ID, StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{StatusPending: 2, StatusInProgress: 0, StatusCompleted: 1}, svc.CountByStatus())

	reloaded, err := NewStore(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, svc.QueryAll(), reloaded.GetAll())
}

func TestStatusPatch(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Request{ID: "1", Status: StatusPending, Category: "plumbing"}
	statusPatch{status: StatusCompleted, at: at}.Apply(&r)
	assert.Equal(t, at, r.ResolvedAt.Time)
	assert.Equal(t, "plumbing", r.Category)
}
