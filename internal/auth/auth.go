// Package auth resolves the caller of a request from a signed JWT. The subject of the token is
// the user id that owns contacts.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/logger"
)

// callerKey is the gin context key under which the caller id is stored.
const callerKey = "auth.caller"

// legacyHeader is the header used by older front-ends instead of a bearer token.
const legacyHeader = "x-auth-token"

var errNoSubject = errors.New("token has no subject")

// Issuer signs and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the user.
func (i *Issuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signed, nil
}

// Verify checks signature and expiry of the token and returns its subject.
func (i *Issuer) Verify(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.WithStack(err)
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

type Middleware struct {
	log    *logger.Logger
	issuer *Issuer
}

func NewMiddleware(log *logger.Logger, issuer *Issuer) *Middleware {
	return &Middleware{log: log.With("middleware", "auth"), issuer: issuer}
}

// RequireAuth rejects requests without a valid token before any handler runs.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "no token, authorization denied"})
			return
		}
		caller, err := m.issuer.Verify(tokenString)
		if err != nil {
			m.log.Debug("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "token is not valid"})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerID returns the authenticated user of the request, or "" outside of RequireAuth.
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.GetHeader(legacyHeader))
}
