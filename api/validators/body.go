package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

const maxBodyBytes = 1 << 20

// DecodeJSONBody reads a single JSON object into dest, rejecting unknown
// fields and trailing content, then applies the validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return bodyError(errors.New("empty body"), "request body is required", nil)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return translateDecodeError(err)
	}
	if dec.More() {
		return bodyError(errors.New("trailing data"), "request body must contain a single JSON object", nil)
	}
	if dec.InputOffset() > maxBodyBytes {
		return bodyError(errors.New("body too large"), "request body is too large", nil)
	}
	return ValidateStruct(dest)
}

func translateDecodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return bodyError(err, "request body is required", nil)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return bodyError(err, "request body is malformed", nil)
	case errors.As(err, &syntaxErr):
		return bodyError(err, "request body is malformed", map[string]string{
			"body": fmt.Sprintf("syntax error at offset %d", syntaxErr.Offset),
		})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return bodyError(err, "invalid request body", map[string]string{
			field: "must be of type " + typeErr.Type.String(),
		})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return bodyError(err, "invalid request body", map[string]string{field: "is not allowed"})
	}
	return bodyError(err, "invalid request body", nil)
}

func bodyError(cause error, msg string, details map[string]string) error {
	typed := pkgerrors.Wrap(pkgerrors.CodeValidation, cause, msg)
	if details != nil {
		typed = typed.WithDetails(details)
	}
	return typed
}
