package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reliefledger/internal/common"
	"reliefledger/internal/models"
	"reliefledger/pkg/logger"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const tokenContextKey = "user"

// CallerClaims are the claims a ledger access token carries.
type CallerClaims struct {
	Role      string `json:"role"`
	ShelterID string `json:"shelter_id,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claims into the identity used by the ledger services.
func (c *CallerClaims) Caller() (models.Caller, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid subject: %w", err)
	}
	role := models.CallerRole(strings.ToLower(c.Role))
	if !role.Valid() {
		return models.Caller{}, fmt.Errorf("unknown role %q", c.Role)
	}
	caller := models.Caller{UserID: userID, Role: role}
	if c.ShelterID != "" {
		shelterID, err := uuid.Parse(c.ShelterID)
		if err != nil {
			return models.Caller{}, fmt.Errorf("invalid shelter_id: %w", err)
		}
		caller.AssignedShelterID = &shelterID
	}
	return caller, nil
}

type JWTOptions struct {
	Secret  string
	JWKSURL string
	Issuer  string
}

// NewJWTConfig builds the echo-jwt config. Tokens are checked against the JWKS
// endpoint when one is set and against the HMAC secret otherwise. The returned
// func stops the JWKS refresher.
func NewJWTConfig(opts JWTOptions, log *logger.Logger) (echojwt.Config, func(), error) {
	cfg := echojwt.Config{
		ContextKey: tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(CallerClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendUnauthorizedError(c)
		},
	}

	if opts.JWKSURL == "" {
		if opts.Secret == "" {
			return echojwt.Config{}, nil, errors.New("either a JWT secret or a JWKS URL is required")
		}
		cfg.SigningKey = []byte(opts.Secret)
		return cfg, func() {}, nil
	}

	jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Warn().Err(err).Str("jwks_url", opts.JWKSURL).Msg("jwks refresh failed")
		},
	})
	if err != nil {
		return echojwt.Config{}, nil, fmt.Errorf("load jwks: %w", err)
	}
	cfg.KeyFunc = jwks.Keyfunc
	return cfg, jwks.EndBackground, nil
}

// CallerFromToken turns the verified token into a models.Caller on the request
// context. It must run after the echo-jwt middleware.
func CallerFromToken(issuer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			claims, ok := token.Claims.(*CallerClaims)
			if !ok {
				return common.SendUnauthorizedError(c)
			}
			if issuer != "" && claims.Issuer != issuer {
				return common.SendUnauthorizedError(c)
			}
			caller, err := claims.Caller()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", err.Error(), nil))
			}

			c.SetRequest(c.Request().WithContext(common.WithCaller(c.Request().Context(), caller)))
			return next(c)
		}
	}
}
