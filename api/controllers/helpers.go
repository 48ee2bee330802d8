package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/api/middleware"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

func requireUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}

func invalidField(field string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, cause, "invalid "+field).
		WithDetails(map[string]string{field: cause.Error()})
}

func parseUUIDField(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, invalidField(field, err)
	}
	return id, nil
}
