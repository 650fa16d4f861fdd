// Package auth guards operator endpoints on the admin surfaces.
//
// It only compares shared tokens; the carriage protocol itself carries no
// credentials.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// TokenHeader is checked when no bearer token is present.
const TokenHeader = "X-Admin-Token"

// Validator validates an authentication token.
type Validator interface {
	Validate(token string) error
}

// StaticToken accepts exactly one shared token. An empty token denies all.
type StaticToken struct {
	Token string
}

func (s StaticToken) Validate(token string) error {
	if s.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// RequestToken extracts the caller's token from Authorization or TokenHeader.
func RequestToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// Require aborts with 401 unless v accepts the request token.
func Require(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := v.Validate(RequestToken(c.Request)); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

// Guard is Require with a static token, or a no-op when token is empty.
func Guard(token string) gin.HandlerFunc {
	if strings.TrimSpace(token) == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return Require(StaticToken{Token: strings.TrimSpace(token)})
}
