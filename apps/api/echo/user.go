package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core/user"
)

type userApi struct{}

func registerUserAPI(g *echo.Group) {
	api := userApi{}

	g.GET("/me", api.me)
	g.GET("/admin/roles", api.queryRoles, adminMiddleware())
}

type MeResponse struct {
	user.User
	IsStaff bool `json:"is_staff"`
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, MeResponse{User: usr, IsStaff: usr.IsStaff()})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}
