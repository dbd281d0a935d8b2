package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelhq/hostel/core/inventory"
	"github.com/hostelhq/hostel/core/user"
)

func Test_inventoryApi(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	staff := app.createUser(t, "Staff", "staff", "", pwd, user.StaffRoles, true)
	admin := app.createUser(t, "Admin", "admin", "", pwd, user.AdminRoles, true)
	student := app.createUser(t, "Hero", "hero", "A101", pwd, user.StudentRoles, true)
	staffToken := app.token(t, staff)

	bulbs, err := app.inventory.Create(ctx, inventory.NewItem{ItemName: "Bulb", Quantity: 4, Block: "A", Floor: "1", Room: "Bathroom", Purpose: "Replacement", Date: "2024-02-01"})
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "Staff required", path: "/v1/inventory", token: app.token(t, student), wantCode: http.StatusForbidden},
		{name: "staff", path: "/v1/inventory", token: staffToken, wantData: marchallObj(t, []inventory.Item{bulbs})},
		{name: "admin", path: "/v1/inventory?status=ACTIVE", token: app.token(t, admin), wantData: marchallObj(t, []inventory.Item{bulbs})},
		{name: "status", path: "/v1/inventory?status=retired", token: staffToken, wantData: marchallObj(t, []inventory.Item{})},
		{name: "invalid", method: http.MethodPost, path: "/v1/inventory", token: staffToken,
			body: []byte(`{"itemName":"Chair","quantity":0,"block":"D","floor":"1","room":"A101","purpose":"Study","date":"2024-02-01"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"quantity": "this field is required",
				"block":    "block must be one of [A B C]",
			})},
		{name: "update unknown", method: http.MethodPut, path: "/v1/inventory/nope", token: staffToken, body: []byte(`{"quantity":2}`), wantCode: http.StatusNotFound},
		{name: "update", method: http.MethodPut, path: "/v1/inventory/" + bulbs.ID, token: staffToken, body: []byte(`{"quantity":2,"status":"Retired"}`)},
	})

	got, err := app.inventory.GetByID(bulbs.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	assert.Equal(t, "retired", got.Status)
	assert.Equal(t, "A-1-Bathroom", got.Location)

	req, rec := newAuthRequest(http.MethodPost, "/v1/inventory", staffToken,
		[]byte(`{"itemName":"Chair","quantity":3,"block":"b","floor":"2","room":"B201","purpose":"Study","date":"2024-02-01"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created inventory.Item
	decode(t, rec, &created)
	assert.Equal(t, "B-2-B201", created.Location)
	assert.Equal(t, inventory.StatusActive, created.Status)
	assert.Equal(t, 3, app.inventory.TotalQuantity(inventory.StatusActive))
}
