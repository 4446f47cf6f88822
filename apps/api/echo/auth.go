package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// demoMode reports whether anonymous requests are served as the configured demo user.
func demoMode(conf *core.Config) bool {
	return conf.Debug && conf.DemoUserID != ""
}

func demoUser(conf *core.Config) user.User {
	return user.User{
		ID:    conf.DemoUserID,
		Name:  "Demo User",
		Roles: []string{user.RoleEmployee},
	}
}

// jwtMiddleware verifies the auth provider's HS256 tokens.
// In demo mode requests without an Authorization header go through unauthenticated.
func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	skipper := middleware.DefaultSkipper
	if demoMode(conf) {
		skipper = func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		}
	}
	return middleware.JWTWithConfig(middleware.JWTConfig{
		Skipper:       skipper,
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(user.Claims),
	})
}

// userMiddleware puts the current user in the context.
func userMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			switch {
			case err == nil:
				ctx.Set(contextUserKey, claims.User())
			case demoMode(conf):
				ctx.Set(contextUserKey, demoUser(conf))
			default:
				return err
			}
			return next(ctx)
		}
	}
}

func getContextClaims(ctx echo.Context) (*user.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*user.Claims); ok {
			return claims, nil
		}
	}
	return nil, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return false
	}
	return user.HasAnyRole(usr, roles...)
}
