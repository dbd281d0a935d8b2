package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core/leave"
	"github.com/hostelhq/hostel/core/user"
)

type leaveApi struct {
	svc      *leave.Service
	users    *user.Service
	validate *validator.Validate
}

func registerLeaveAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := leaveApi{svc: deps.LeaveSvc, users: deps.UserSvc, validate: deps.Validate}

	lg := g.Group("/leaves", authed...)
	lg.GET("", api.query, adminMiddleware())
	lg.GET("/mine", api.queryMine, studentMiddleware())
	lg.POST("", api.create, studentMiddleware())
	lg.PATCH("/:id/status", api.updateStatus, adminMiddleware())
	lg.DELETE("/:id", api.destroy, adminMiddleware())
}

func (api *leaveApi) query(ctx echo.Context) error {
	filter := new(leave.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []leave.Request{})
	}
	filter.Clean()
	return ctx.JSON(http.StatusOK, api.svc.Filter(*filter))
}

func (api *leaveApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, api.svc.StudentLeaves(usr.ID))
}

func (api *leaveApi) create(ctx echo.Context) error {
	var data leave.NewRequest
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
		return errors.Wrap(err, "creating leave request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *leaveApi) updateStatus(ctx echo.Context) error {
	var data leave.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.UpdateStatus(ctx.Request().Context(), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating leave status")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *leaveApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting leave request")
	}
	return ctx.NoContent(http.StatusNoContent)
}
