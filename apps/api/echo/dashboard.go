package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hostelhq/hostel/core/dashboard"
	"github.com/hostelhq/hostel/core/user"
)

type dashboardApi struct {
	svc   *dashboard.Service
	users *user.Service
}

func registerDashboardAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := dashboardApi{svc: deps.DashboardSvc, users: deps.UserSvc}

	dg := g.Group("/dashboard", authed...)
	dg.GET("/admin", api.admin, adminMiddleware())
	dg.GET("/student", api.student, studentMiddleware())
}

func (api *dashboardApi) admin(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Admin())
}

func (api *dashboardApi) student(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, api.svc.Student(usr))
}
