package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/user"
)

const contextSessionKey = "session"

// adminMiddleware lets through users holding any of roles (the staff roles by default).
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	if len(roles) == 0 {
		roles = user.StaffRoles
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// sessionMiddleware puts the current user's session in the context.
func sessionMiddleware(repo session.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			sess, err := repo.GetOrCreateSession(usr)
			if err != nil {
				return errors.Wrap(err, "getting session")
			}
			ctx.Set(contextSessionKey, sess)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (*session.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return sess, nil
	}
	return nil, errSessionNotFoundInCtx
}
