package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core/inventory"
)

type inventoryApi struct {
	svc      *inventory.Service
	validate *validator.Validate
}

func registerInventoryAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := inventoryApi{svc: deps.InventorySvc, validate: deps.Validate}

	ig := g.Group("/inventory", append(authed, staffMiddleware())...)
	ig.GET("", api.query)
	ig.POST("", api.create)
	ig.PUT("/:id", api.update)
}

func (api *inventoryApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Filter(ctx.QueryParam("status")))
}

func (api *inventoryApi) create(ctx echo.Context) error {
	var data inventory.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating inventory item")
	}
	return ctx.JSON(http.StatusCreated, it)
}

func (api *inventoryApi) update(ctx echo.Context) error {
	var data inventory.UpdateItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	it, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating inventory item")
	}
	return ctx.JSON(http.StatusOK, it)
}
