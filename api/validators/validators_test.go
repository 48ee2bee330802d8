package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/subhub/telecom-subscriptions/pkg/enums"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

type signup struct {
	Username string `json:"username" validate:"required,min=3"`
	Phone    string `json:"phone" validate:"required,indian_phone"`
}

func TestIsIndianPhone(t *testing.T) {
	cases := map[string]bool{
		"9876543210":      true,
		"+919876543210":   true,
		"+91-9876543210":  true,
		"+91 98765 43210": true,
		"5876543210":      false,
		"987654321":       false,
		"+1-9876543210":   false,
		"":                false,
	}
	for input, want := range cases {
		if got := IsIndianPhone(input); got != want {
			t.Errorf("IsIndianPhone(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestDecodeJSONBody(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"jane","phone":"+91-9876543211"}`))
		var dest signup
		require.NoError(t, DecodeJSONBody(req, &dest))
		require.Equal(t, "jane", dest.Username)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"jane","phone":"9876543211","role":"admin"}`))
		var dest signup
		err := DecodeJSONBody(req, &dest)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	})

	t.Run("field errors use json names", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"jo","phone":"12345"}`))
		var dest signup
		err := DecodeJSONBody(req, &dest)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		details := typed.Details().(map[string]string)
		require.Equal(t, "must be at least 3", details["username"])
		require.Equal(t, "must be a valid Indian mobile number", details["phone"])
	})
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&popular=true&bad=x", nil)

	limit, err := ParseQueryInt(req, "limit", 10, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 25, limit)

	limit, err = ParseQueryInt(req, "missing", 10, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 10, limit)

	_, err = ParseQueryInt(req, "bad", 10, 1, 100)
	require.Error(t, err)

	popular, err := ParseQueryBool(req, "popular")
	require.NoError(t, err)
	require.True(t, popular)

	_, err = ParseQueryBool(req, "bad")
	require.Error(t, err)
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("planId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := ParseUUIDParam(req, "planId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "changed my mind", SanitizeString("  changed my mind  ", 0))
	require.Equal(t, "₹₹", SanitizeString("₹₹₹", 2))
}

type planForm struct {
	Category enums.PlanCategory `json:"category" validate:"required,enum"`
}

func TestEnumRule(t *testing.T) {
	require.NoError(t, ValidateStruct(&planForm{Category: enums.PlanCategory("bundle")}))

	err := ValidateStruct(&planForm{Category: enums.PlanCategory("satellite")})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, "is not a recognized value", typed.Details().(map[string]string)["category"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":      ``,
		"syntax":     `{"username":}`,
		"wrong type": `{"username":7,"phone":"9876543211"}`,
		"trailing":   `{"username":"jane","phone":"9876543211"} {"username":"x"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			var dest signup
			err := DecodeJSONBody(req, &dest)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestSanitizeStringDropsControlCharacters(t *testing.T) {
	require.Equal(t, "moving abroad", SanitizeString("moving\x00 abroad\x07", 0))
}
