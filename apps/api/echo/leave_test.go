package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core/leave"
	"github.com/hostelhq/hostel/core/user"
)

func Test_leaveApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	admin := app.createUser(t, "Admin", "admin", "", pwd, user.AdminRoles, true)
	staff := app.createUser(t, "Staff", "staff", "", pwd, user.StaffRoles, true)
	hero := app.createUser(t, "Hero", "hero", "A101", pwd, user.StudentRoles, true)
	other := app.createUser(t, "Other", "other", "B202", pwd, user.StudentRoles, true)
	adminToken := app.token(t, admin)
	heroToken := app.token(t, hero)

	trip, err := app.leaves.Create(ctx, other, leave.NewRequest{StartDate: "2024-06-01", EndDate: "2024-06-03", Reason: "Family", Destination: "Goma"})
	require.NoError(t, err)

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"startDate":"2024-07-01","endDate":"2024-07-05","reason":"Wedding","destination":"Kinshasa"}`)
		runHTTPTests(t, app, []httpTest{
			{name: "Student required", method: http.MethodPost, path: "/v1/leaves", token: app.token(t, staff), body: body, wantCode: http.StatusForbidden},
			{name: "end before start", method: http.MethodPost, path: "/v1/leaves", token: heroToken, wantCode: http.StatusBadRequest,
				body:     []byte(`{"startDate":"2024-07-05","endDate":"2024-07-01","reason":"Wedding","destination":"Kinshasa"}`),
				wantData: marchallObj(t, map[string]string{"endDate": "end date must not be before start date"})},
			{name: "missing fields", method: http.MethodPost, path: "/v1/leaves", token: heroToken, body: []byte(`{}`), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{
					"startDate":   "this field is required",
					"endDate":     "this field is required",
					"reason":      "this field is required",
					"destination": "this field is required",
				})},
		})

		req, rec := newAuthRequest(http.MethodPost, "/v1/leaves", heroToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created leave.Request
		decode(t, rec, &created)
		assert.Equal(t, hero.ID, created.StudentID)
		assert.Equal(t, "Hero", created.StudentName)
		assert.Equal(t, "A101", created.RoomNumber)
		assert.Equal(t, leave.StatusPending, created.Status)
		assert.False(t, created.DecidedAt.Valid)
	})

	mine := app.leaves.StudentLeaves(hero.ID)
	require.Len(t, mine, 1)

	t.Run("query", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", path: "/v1/leaves", token: heroToken, wantCode: http.StatusForbidden},
			{name: "all", path: "/v1/leaves", token: adminToken, wantData: marchallObj(t, []leave.Request{trip, mine[0]})},
			{name: "by student", path: "/v1/leaves?student_id=" + other.ID, token: adminToken, wantData: marchallObj(t, []leave.Request{trip})},
			{name: "by status", path: "/v1/leaves?status=approved", token: adminToken, wantData: marchallObj(t, []leave.Request{})},
			{name: "mine", path: "/v1/leaves/mine", token: heroToken, wantData: marchallObj(t, mine)},
		})
	})

	t.Run("update status", func(t *testing.T) {
		app.mails.Reset()
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", method: http.MethodPatch, path: "/v1/leaves/" + trip.ID + "/status", token: heroToken, body: []byte(`{"status":"approved"}`), wantCode: http.StatusForbidden},
			{name: "bad status", method: http.MethodPatch, path: "/v1/leaves/" + trip.ID + "/status", token: adminToken, body: []byte(`{"status":"maybe"}`), wantCode: http.StatusBadRequest},
			{name: "unknown", method: http.MethodPatch, path: "/v1/leaves/nope/status", token: adminToken, body: []byte(`{"status":"approved"}`), wantCode: http.StatusNotFound},
			{name: "approved", method: http.MethodPatch, path: "/v1/leaves/" + trip.ID + "/status", token: adminToken, body: []byte(`{"status":"Approved"}`)},
		})

		got, err := app.leaves.GetByID(trip.ID)
		require.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, got.Status)
		assert.True(t, got.DecidedAt.Valid)

		sent := app.mails.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, "other@test.cd", sent[0].To[0].Address)
		assert.Equal(t, "leave_status", sent[0].TemplateName)
	})

	t.Run("destroy", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", method: http.MethodDelete, path: "/v1/leaves/" + trip.ID, token: heroToken, wantCode: http.StatusForbidden},
			{name: "deleted", method: http.MethodDelete, path: "/v1/leaves/" + trip.ID, token: adminToken, wantCode: http.StatusNoContent},
		})
		assert.Len(t, app.leaves.QueryAll(), 1)
	})
}
