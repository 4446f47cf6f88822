package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/session"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden   = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errBackendFailed   = "the Earn Your Wings service is unavailable, please try again later"
	errFileRequired    = "this field is required"
	errFileTooLarge    = "this file is too large"
	errInvalidTopParam = "must be a positive number"

	errSessionNotFoundInCtx = errors.New("session not found in echo.Context")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.FieldErrors(origErr, translator)
		case *core.ValidationError:
			if origErr.Fields != nil {
				message = core.FieldErrors(origErr, translator)
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			code, message = classify(err)
			if code == http.StatusBadGateway || code == http.StatusInternalServerError {
				usr, _ := getContextUser(ctx)
				logger.Error(http.StatusText(code), errors.Wrap(err, ctx.Request().URL.Path), usr)
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// classify maps domain errors to a status code and a client message.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, core.ErrNotFound.Error()
	case errors.Is(err, core.ErrAuthorizationDenied):
		return http.StatusForbidden, core.ErrAuthorizationDenied.Error()
	case errors.Is(err, session.ErrSubmissionInFlight):
		return http.StatusConflict, session.ErrSubmissionInFlight.Error()
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, core.ErrRequestFailed):
		return http.StatusBadGateway, errBackendFailed
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}
