package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/internal/auth"
	"github.com/subhub/telecom-subscriptions/internal/subscriptions"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

type stubAuth struct {
	auth.Service
	loggedOut   string
	refreshWith [2]string
	passwordFor uuid.UUID
	loginErr    error
	deleted     auth.DeleteAccountRequest
	deletedWith string
}

func (s *stubAuth) DeleteAccount(_ context.Context, userID uuid.UUID, accessToken string, req auth.DeleteAccountRequest) (*subscriptions.AccountClosure, error) {
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "password verification required for account deletion")
	}
	s.deleted = req
	s.deletedWith = accessToken
	return &subscriptions.AccountClosure{CancelledPlans: 1}, nil
}

func (s *stubAuth) Login(_ context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (s *stubAuth) Register(_ context.Context, req auth.RegisterRequest) (*auth.TokenResponse, error) {
	return &auth.TokenResponse{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}, nil
}

func (s *stubAuth) Refresh(_ context.Context, accessToken, refreshToken string) (*auth.TokenResponse, error) {
	s.refreshWith = [2]string{accessToken, refreshToken}
	return &auth.TokenResponse{AccessToken: "a2", RefreshToken: "r2", TokenType: "Bearer"}, nil
}

func (s *stubAuth) Logout(_ context.Context, accessToken string) error {
	s.loggedOut = accessToken
	return nil
}

func (s *stubAuth) ChangePassword(_ context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error {
	s.passwordFor = userID
	return nil
}

func TestAuthEndpointsWithoutService(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthLogin(nil, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/auth/login", `{}`, nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthLogin(t *testing.T) {
	svc := &stubAuth{}
	rec := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"john.doe","password":"password123"}`, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, string(decodeEnvelope(t, rec).Data), `"token_type":"Bearer"`)

	svc.loginErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	rec = httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/auth/login", `{"username":"john.doe","password":"nope"}`, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRegisterReturnsCreated(t *testing.T) {
	body := `{"username":"asha.k","email":"asha@example.com","password":"secret1","first_name":"Asha","last_name":"K","phone":"9876543210"}`
	rec := httptest.NewRecorder()
	AuthRegister(&stubAuth{}, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/auth/register", body, nil))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAuthRefreshRequiresAccessToken(t *testing.T) {
	svc := &stubAuth{}
	rec := httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(rec, newRequest(http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"r"}`, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := newRequest(http.MethodPost, "/api/v1/auth/refresh", `{"refresh_token":"r"}`, nil)
	req.Header.Set("Authorization", "Bearer old.access")
	rec = httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, [2]string{"old.access", "r"}, svc.refreshWith)
}

func TestAuthLogoutWritesMessage(t *testing.T) {
	svc := &stubAuth{}
	req := newRequest(http.MethodPost, "/api/v1/auth/logout", "", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	AuthLogout(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Logged out successfully", decodeEnvelope(t, rec).Message)
	require.Equal(t, "tok", svc.loggedOut)
}

func TestAuthChangePasswordRequiresUser(t *testing.T) {
	svc := &stubAuth{}
	body := `{"current_password":"old","new_password":"newer1"}`

	rec := httptest.NewRecorder()
	AuthChangePassword(svc, nil).ServeHTTP(rec, newRequest(http.MethodPut, "/api/v1/auth/change-password", body, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	userID := uuid.New()
	rec = httptest.NewRecorder()
	AuthChangePassword(svc, nil).ServeHTTP(rec, asUser(newRequest(http.MethodPut, "/api/v1/auth/change-password", body, nil), userID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, userID, svc.passwordFor)
}

func TestAuthDeleteAccount(t *testing.T) {
	svc := &stubAuth{}
	userID := uuid.New()

	req := asUser(newRequest(http.MethodDelete, "/api/v1/users/delete-account", "", nil), userID)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	AuthDeleteAccount(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = asUser(newRequest(http.MethodDelete, "/api/v1/users/delete-account", `{"password":"password123"}`, nil), userID)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	AuthDeleteAccount(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, "Account deleted successfully", env.Message)
	require.JSONEq(t, `{"cancelled_plans":1}`, string(env.Data))
	require.Equal(t, "password123", svc.deleted.Password)
	require.Equal(t, "tok", svc.deletedWith)
}
