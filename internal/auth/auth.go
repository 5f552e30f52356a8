// Package auth resolves the calling user from a request.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type User struct {
	ID       string
	Username string
	Admin    bool
}

type Authenticator interface {
	Authenticate(r *http.Request) (User, error)
}

type Claims struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// JWT verifies HS256 tokens from the Authorization header or the token query
// parameter (browsers cannot set headers on a websocket upgrade).
type JWT struct {
	secret []byte
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret)}
}

func (a *JWT) Authenticate(r *http.Request) (User, error) {
	raw := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		raw = strings.TrimPrefix(h, "Bearer ")
	}
	if raw == "" {
		return User{}, ErrUnauthenticated
	}
	return a.Parse(raw)
}

func (a *JWT) Parse(raw string) (User, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return User{}, ErrUnauthenticated
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return User{ID: claims.Subject, Username: name, Admin: claims.Admin}, nil
}

// Issue signs a token for u; used by tooling and tests.
func (a *JWT) Issue(u User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  u.Username,
		Admin: u.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
