package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	validToken string
	user       *User
}

func (f *fakeAuthenticator) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == f.user.Email && password == "password123" {
		return f.user, f.validToken, nil
	}
	return nil, "", ErrInvalidCredentials
}

func (f *fakeAuthenticator) Validate(ctx context.Context, token string) (*User, error) {
	if token == f.validToken {
		return f.user, nil
	}
	return nil, ErrInvalidToken
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		validToken: "tok-valid",
		user:       &User{ID: "u1", Name: "Admin User", Email: "admin@example.com"},
	}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func protectedRouter(store Authenticator, inner http.HandlerFunc) *mux.Router {
	router := mux.NewRouter()
	protected := router.NewRoute().Subrouter()
	protected.Use(Middleware(store, quietLogger()))
	protected.HandleFunc("/orders", inner).Methods("GET")
	return router
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	router := protectedRouter(newFakeAuthenticator(), func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Not authorized, no token", body["message"])
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	router := protectedRouter(newFakeAuthenticator(), func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer tok-expired")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Not authorized, token failed", body["message"])
}

func TestMiddlewarePassesValidTokenAndAttachesUser(t *testing.T) {
	var gotUser *User
	router := protectedRouter(newFakeAuthenticator(), func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer tok-valid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotUser)
	assert.Equal(t, "admin@example.com", gotUser.Email)
}

func TestLoginHandler(t *testing.T) {
	router := mux.NewRouter()
	NewHandler(newFakeAuthenticator(), quietLogger()).RegisterRoutes(router)

	body, _ := json.Marshal(map[string]string{
		"email": "admin@example.com", "password": "password123",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "tok-valid", resp["token"])
	assert.Equal(t, "admin@example.com", resp["email"])
}

func TestLoginHandlerRejectsBadCredentials(t *testing.T) {
	router := mux.NewRouter()
	NewHandler(newFakeAuthenticator(), quietLogger()).RegisterRoutes(router)

	body, _ := json.Marshal(map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Invalid email or password", resp["message"])
}
