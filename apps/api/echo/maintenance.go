package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core/maintenance"
	"github.com/hostelhq/hostel/core/user"
)

type maintenanceApi struct {
	svc      *maintenance.Service
	users    *user.Service
	validate *validator.Validate
}

func registerMaintenanceAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := maintenanceApi{svc: deps.MaintenanceSvc, users: deps.UserSvc, validate: deps.Validate}

	mg := g.Group("/maintenance", authed...)
	mg.GET("", api.query, staffMiddleware())
	mg.GET("/mine", api.queryMine, studentMiddleware())
	mg.POST("", api.create, studentMiddleware())
	mg.PATCH("/:id/status", api.updateStatus, staffMiddleware())
}

func (api *maintenanceApi) query(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.RoomRequests(ctx.QueryParam("room")))
}

func (api *maintenanceApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, api.svc.StudentRequests(usr.ID))
}

func (api *maintenanceApi) create(ctx echo.Context) error {
	var data maintenance.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	r, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating maintenance request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *maintenanceApi) updateStatus(ctx echo.Context) error {
	var data maintenance.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating maintenance status")
	}
	return ctx.JSON(http.StatusOK, r)
}
