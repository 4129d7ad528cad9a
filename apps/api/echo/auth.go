package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/roster"
)

var contextTokenKey = "facultyToken"

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Name         string `json:"name,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
}

func GetFacultyClaims(conf *core.Config, fac roster.Faculty, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   fac.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     fac.Username,
		Name:         fac.Name,
		IsAdmin:      fac.IsAdmin,
	}
}

func authenticate(ctx echo.Context, uname, pwd string, deps ServerDeps) (*Claims, error) {
	fac, err := deps.RosterSvc.GetFacultyByUsername(ctx.Request().Context(), uname)
	if err != nil {
		if errors.Cause(err) == roster.ErrFacultyNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding faculty by username")
	}
	if err = fac.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !fac.IsActive {
		return nil, errAccountDeactivated
	}
	fac, err = deps.RosterSvc.SetLastLogin(ctx.Request().Context(), fac)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return GetFacultyClaims(deps.Conf, fac), nil
}

// GenerateToken generates a signed JWT token string representing the faculty Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func refreshToken(ctx echo.Context, deps ServerDeps) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	fac, err := deps.RosterSvc.GetFacultyByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return "", errors.Wrap(err, "finding faculty by ID")
	}
	if !fac.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(deps.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetFacultyClaims(deps.Conf, fac, claims.OrigIssuedAt)
	token, err := GenerateToken(deps.Conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
