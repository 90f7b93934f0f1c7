package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject   = "sub"
	claimUserID    = "user_id"
	claimName      = "name"
	claimAdvisorID = "advisor_id"
)

// Operator is the dashboard user carried by a token.
type Operator struct {
	UserID    string
	Name      string
	AdvisorID string
}

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
// An empty secret disables the check.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	if strings.TrimSpace(secret) == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// UserIDFromContext extracts the user id from JWT claims.
func UserIDFromContext(c echo.Context) (string, error) {
	op, err := OperatorFromContext(c)
	if err != nil {
		return "", err
	}
	return op.UserID, nil
}

// OperatorFromContext reads the operator claims set by JWTMiddleware.
func OperatorFromContext(c echo.Context) (Operator, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return Operator{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Operator{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	op := Operator{
		UserID:    claimString(claims, claimUserID),
		Name:      claimString(claims, claimName),
		AdvisorID: claimString(claims, claimAdvisorID),
	}
	if op.UserID == "" {
		op.UserID = claimString(claims, claimSubject)
	}
	if op.UserID == "" {
		return Operator{}, echo.NewHTTPError(http.StatusUnauthorized, "user id missing")
	}
	return op, nil
}

// GenerateToken creates a signed operator JWT.
func GenerateToken(op Operator, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(op.UserID) == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject: op.UserID,
		claimUserID:  op.UserID,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	if name := strings.TrimSpace(op.Name); name != "" {
		claims[claimName] = name
	}
	if advisorID := strings.TrimSpace(op.AdvisorID); advisorID != "" {
		claims[claimAdvisorID] = advisorID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
