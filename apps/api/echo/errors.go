package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
	"github.com/classledger/backend/core/roster"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "faculty not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// conflictResponse reports a blocked submission so the client can tell the
// faculty member who marked the session first.
type conflictResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	Section   string `json:"section"`
	Period    string `json:"period"`
	BlockedBy string `json:"blocked_by"`
	Date      string `json:"date"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps ServerDeps, signalShutdown func()) echo.HTTPErrorHandler {
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
		case *attendance.ConflictError:
			code = http.StatusConflict
			message = conflictResponse{
				Code:      "CONFLICT_ALREADY_MARKED",
				Error:     origErr.Error(),
				Section:   origErr.Section,
				Period:    string(origErr.Period),
				BlockedBy: origErr.Faculty,
				Date:      origErr.Date,
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(deps.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			switch errors.Cause(err) {
			case roster.ErrStudentNotFound, roster.ErrFacultyNotFound:
				code = http.StatusNotFound
				message = errors.Cause(err).Error()
			case roster.ErrFacultyExists:
				code = http.StatusBadRequest
				message = errors.Cause(err).Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var fac roster.Faculty
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					fac.ID = claims.Subject
					fac.Username = claims.Username
					fac.Name = claims.Name
				}
				deps.Logger.Error(msg, errors.Wrap(err, msg), fac)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			if _, ok := message.(conflictResponse); !ok {
				message = err.Error()
			}
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
