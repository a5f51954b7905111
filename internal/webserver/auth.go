package webserver

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const userContextKey = "user"

// JwtClaims is the token payload issued at login
type JwtClaims struct {
	Uid      int64  `json:"uid,string"`
	Username string `json:"username"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// CreateToken issues an HS256 token valid for ttl
func CreateToken(secret string, uid int64, username, userType string, ttl time.Duration) (string, time.Time, error) {
	expire := time.Now().Add(ttl)
	claims := &JwtClaims{
		Uid:      uid,
		Username: username,
		Type:     userType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expire),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "retailhub",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return token, expire, nil
}

// CurrentClaims returns the claims of the authenticated caller
func CurrentClaims(c echo.Context) (*JwtClaims, bool) {
	token, ok := c.Get(userContextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, false
	}
	claims, ok := token.Claims.(*JwtClaims)
	return claims, ok
}

func jwtMiddleware(secret string, skipper func(c echo.Context) bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		Skipper:    skipper,
		SigningKey: []byte(secret),
		ContextKey: userContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(JwtClaims)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, map[string]interface{}{
				"error":   "UNAUTHORIZED",
				"message": "Missing or invalid token",
			})
		},
	})
}
