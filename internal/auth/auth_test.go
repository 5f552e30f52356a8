package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	a := NewJWT("s3cret")
	tok, err := a.Issue(User{ID: "u1", Username: "alice", Admin: true}, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	u, err := a.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Username: "alice", Admin: true}, u)
}

func TestJWT_QueryToken(t *testing.T) {
	a := NewJWT("s3cret")
	tok, err := a.Issue(User{ID: "u2"}, time.Hour)
	require.NoError(t, err)

	u, err := a.Authenticate(httptest.NewRequest("GET", "/ws?token="+tok, nil))
	require.NoError(t, err)
	assert.Equal(t, "u2", u.Username)
}

func TestJWT_Rejects(t *testing.T) {
	a := NewJWT("s3cret")
	other, _ := NewJWT("other").Issue(User{ID: "u1"}, time.Hour)
	expired, _ := a.Issue(User{ID: "u1"}, -time.Minute)

	for name, tok := range map[string]string{"missing": "", "wrong key": other, "expired": expired, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(httptest.NewRequest("GET", "/ws?token="+tok, nil))
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}
