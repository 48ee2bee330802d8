package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/api/middleware"
	"github.com/subhub/telecom-subscriptions/api/responses"
	"github.com/subhub/telecom-subscriptions/api/validators"
	"github.com/subhub/telecom-subscriptions/internal/auth"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
	"github.com/subhub/telecom-subscriptions/pkg/logger"
)

// authReply is what an auth endpoint hands back to authEndpoint for writing.
type authReply struct {
	status  int
	message string
	data    any
}

type authAction func(r *http.Request, svc auth.Service) (authReply, error)

func authEndpoint(svc auth.Service, logg *logger.Logger, action authAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}
		reply, err := action(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if reply.status == 0 {
			reply.status = http.StatusOK
		}
		if reply.message != "" {
			responses.WriteMessage(w, reply.status, reply.message, reply.data)
			return
		}
		responses.WriteSuccessStatus(w, reply.status, reply.data)
	}
}

// authedAction resolves the caller before running fn.
func authedAction(fn func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error)) authAction {
	return func(r *http.Request, svc auth.Service) (authReply, error) {
		userID, err := requireUserID(r)
		if err != nil {
			return authReply{}, err
		}
		return fn(r, svc, userID)
	}
}

func presentedToken(r *http.Request) (string, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return token, nil
}

// AuthRegister creates a customer account and signs it in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request, svc auth.Service) (authReply, error) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return authReply{}, err
		}
		tokens, err := svc.Register(r.Context(), body)
		return authReply{status: http.StatusCreated, data: tokens}, err
	})
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request, svc auth.Service) (authReply, error) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return authReply{}, err
		}
		tokens, err := svc.Login(r.Context(), body)
		return authReply{data: tokens}, err
	})
}

// AuthRefresh rotates the refresh token. The access token it was issued with
// must be presented too, expired or not.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request, svc auth.Service) (authReply, error) {
		accessToken, err := presentedToken(r)
		if err != nil {
			return authReply{}, err
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return authReply{}, err
		}
		tokens, err := svc.Refresh(r.Context(), accessToken, body.RefreshToken)
		return authReply{data: tokens}, err
	})
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, func(r *http.Request, svc auth.Service) (authReply, error) {
		accessToken, err := presentedToken(r)
		if err != nil {
			return authReply{}, err
		}
		if err := svc.Logout(r.Context(), accessToken); err != nil {
			return authReply{}, err
		}
		return authReply{message: "Logged out successfully"}, nil
	})
}

func AuthProfile(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, authedAction(func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error) {
		profile, err := svc.Profile(r.Context(), userID)
		return authReply{data: profile}, err
	}))
}

func AuthUpdateProfile(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, authedAction(func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error) {
		var body auth.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return authReply{}, err
		}
		profile, err := svc.UpdateProfile(r.Context(), userID, body)
		return authReply{message: "Profile updated successfully", data: profile}, err
	}))
}

func AuthChangePassword(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, authedAction(func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error) {
		var body auth.ChangePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return authReply{}, err
		}
		if err := svc.ChangePassword(r.Context(), userID, body); err != nil {
			return authReply{}, err
		}
		return authReply{message: "Password changed successfully"}, nil
	}))
}

// AuthVerify confirms the presented token still maps to an active account.
func AuthVerify(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, authedAction(func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error) {
		result, err := svc.Verify(r.Context(), userID)
		return authReply{data: result}, err
	}))
}

// AuthDeleteAccount closes the caller's account after re-checking the password.
func AuthDeleteAccount(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return authEndpoint(svc, logg, authedAction(func(r *http.Request, svc auth.Service, userID uuid.UUID) (authReply, error) {
		accessToken, err := presentedToken(r)
		if err != nil {
			return authReply{}, err
		}
		var body auth.DeleteAccountRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				return authReply{}, err
			}
		}
		closure, err := svc.DeleteAccount(r.Context(), userID, accessToken, body)
		if err != nil {
			return authReply{}, err
		}
		return authReply{message: "Account deleted successfully", data: closure}, nil
	}))
}
