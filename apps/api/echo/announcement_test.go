package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core/announcement"
	"github.com/hostelhq/hostel/core/user"
)

func Test_announcementApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	admin := app.createUser(t, "Admin", "admin", "", pwd, user.AdminRoles, true)
	student := app.createUser(t, "Hero", "hero", "A101", pwd, user.StudentRoles, true)
	adminToken := app.token(t, admin)
	studentToken := app.token(t, student)

	sports, err := app.announcements.Create(ctx, announcement.NewAnnouncement{Title: "Football", Category: announcement.CategorySports, Date: "2024-03-01", Description: "Finals"})
	require.NoError(t, err)
	exams, err := app.announcements.Create(ctx, announcement.NewAnnouncement{Title: "Exams", Category: announcement.CategoryAcademic, Date: "2024-04-01", Description: "Timetable"})
	require.NoError(t, err)

	t.Run("query", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "Auth required", path: "/v1/announcements", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
			{name: "all", path: "/v1/announcements", token: studentToken, wantData: marchallObj(t, []announcement.Announcement{sports, exams})},
			{name: "category", path: "/v1/announcements?category=ACADEMIC", token: studentToken, wantData: marchallObj(t, []announcement.Announcement{exams})},
			{name: "unknown category", path: "/v1/announcements?category=party", token: studentToken, wantData: marchallObj(t, []announcement.Announcement{})},
			{name: "categories", path: "/v1/announcements/categories", token: studentToken, wantData: marchallObj(t, announcement.Categories)},
		})
	})

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"title":" Movie night ","category":"Event","date":"2024-05-10","description":"Common room"}`)
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", method: http.MethodPost, path: "/v1/announcements", token: studentToken, body: body, wantCode: http.StatusForbidden},
			{name: "invalid", method: http.MethodPost, path: "/v1/announcements", token: adminToken, body: []byte(`{"title":"x","category":"party","date":"10/05/2024"}`), wantCode: http.StatusBadRequest,
				wantData: marchallObj(t, map[string]string{
					"category":    "category must be one of [event maintenance academic sports]",
					"date":        "must be a date formatted as YYYY-MM-DD",
					"description": "this field is required",
				})},
		})

		req, rec := newAuthRequest(http.MethodPost, "/v1/announcements", adminToken, body)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created announcement.Announcement
		decode(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Movie night", created.Title)
		assert.Equal(t, announcement.CategoryEvent, created.Category)
		assert.Equal(t, 3, app.announcements.Count())
	})

	t.Run("update", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", method: http.MethodPut, path: "/v1/announcements/" + exams.ID, token: studentToken, body: []byte(`{"title":"x"}`), wantCode: http.StatusForbidden},
			{name: "unknown", method: http.MethodPut, path: "/v1/announcements/nope", token: adminToken, body: []byte(`{"title":"x"}`), wantCode: http.StatusNotFound},
			{name: "bad category", method: http.MethodPut, path: "/v1/announcements/" + exams.ID, token: adminToken, body: []byte(`{"category":"party"}`), wantCode: http.StatusBadRequest},
			{name: "updated", method: http.MethodPut, path: "/v1/announcements/" + exams.ID, token: adminToken, body: []byte(`{"title":"Final exams"}`)},
		})
		got, err := app.announcements.GetByID(exams.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final exams", got.Title)
		assert.Equal(t, exams.Description, got.Description)
	})

	t.Run("destroy", func(t *testing.T) {
		runHTTPTests(t, app, []httpTest{
			{name: "Admin required", method: http.MethodDelete, path: "/v1/announcements/" + sports.ID, token: studentToken, wantCode: http.StatusForbidden},
			{name: "deleted", method: http.MethodDelete, path: "/v1/announcements/" + sports.ID, token: adminToken, wantCode: http.StatusNoContent},
			{name: "unknown is a no-op", method: http.MethodDelete, path: "/v1/announcements/" + sports.ID, token: adminToken, wantCode: http.StatusNoContent},
		})
		_, err := app.announcements.GetByID(sports.ID)
		assert.Error(t, err)
	})

	t.Run("persistence failure", func(t *testing.T) {
		app.backend.FailSaves(errors.New("disk full"))
		defer app.backend.FailSaves(nil)

		runHTTPTests(t, app, []httpTest{
			{name: "kept in memory", method: http.MethodPut, path: "/v1/announcements/" + exams.ID, token: adminToken, body: []byte(`{"title":"Unsaved"}`),
				wantCode: http.StatusServiceUnavailable, wantData: marchallObj(t, httpErr{Error: "your change was applied but could not be saved, please retry later"})},
		})
		got, err := app.announcements.GetByID(exams.ID)
		require.NoError(t, err)
		assert.Equal(t, "Unsaved", got.Title)
	})
}
