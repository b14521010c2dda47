package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken(Claims{Subject: "alice", FlowID: "flow_1"}, time.Hour)
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, Claims{Subject: "alice", FlowID: "flow_1"}, claims)
	assert.True(t, claims.Allows("flow_1"))
	assert.False(t, claims.Allows("flow_2"))
	assert.True(t, Claims{Subject: "bob"}.Allows("flow_2"))
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, err := NewService("one").IssueToken(Claims{Subject: "alice"}, time.Hour)
	require.NoError(t, err)

	_, err = NewService("two").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	s := NewService("secret")
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	token, err := s.IssueToken(Claims{Subject: "alice"}, time.Minute)
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(time.Hour) }
	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}

func TestIssueRequiresSubject(t *testing.T) {
	_, err := NewService("secret").IssueToken(Claims{}, 0)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	s := NewService("secret")
	token, err := s.IssueToken(Claims{Subject: "alice"}, time.Hour)
	require.NoError(t, err)

	var got Claims
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"missing", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) }, http.StatusUnauthorized},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			return r
		}, http.StatusNoContent},
		{"bad scheme", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Basic "+token)
			return r
		}, http.StatusUnauthorized},
		{"query", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?token="+token, nil) }, http.StatusNoContent},
		{"garbage", func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?token=x", nil) }, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Claims{}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, tt.req())
			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusNoContent {
				assert.Equal(t, "alice", got.Subject)
			}
		})
	}
}

func TestIssueDevToken(t *testing.T) {
	s := NewService("secret")
	h := NewHandler(s)

	rr := httptest.NewRecorder()
	h.IssueDevToken(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"subject":"alice","flowId":"flow_1","ttl":"1h"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp tokenResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	claims, err := s.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "flow_1", claims.FlowID)

	rr = httptest.NewRecorder()
	h.IssueDevToken(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ttl":"1h"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.IssueDevToken(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"subject":"a","ttl":"soon"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
