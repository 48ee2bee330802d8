package validators

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/subhub/telecom-subscriptions/pkg/errors"
)

var mobilePattern = regexp.MustCompile(`^(?:\+91-?)?[6-9][0-9]{9}$`)

// enumValue is satisfied by the string enums in pkg/enums.
type enumValue interface {
	IsValid() bool
}

var engine = buildEngine()

func buildEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	rules := map[string]validator.Func{
		"indian_phone": func(fl validator.FieldLevel) bool {
			return IsIndianPhone(fl.Field().String())
		},
		"enum": func(fl validator.FieldLevel) bool {
			if !fl.Field().CanInterface() {
				return false
			}
			e, ok := fl.Field().Interface().(enumValue)
			return ok && e.IsValid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// IsIndianPhone accepts ten digit mobile numbers starting 6-9 with an
// optional +91 or +91- prefix. Spaces are ignored.
func IsIndianPhone(value string) bool {
	return mobilePattern.MatchString(strings.ReplaceAll(value, " ", ""))
}

// ValidateStruct runs the struct tag rules without decoding.
func ValidateStruct(dest any) error {
	err := engine.Struct(dest)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "enum":
		return "is not a recognized value"
	case "indian_phone":
		return "must be a valid Indian mobile number"
	default:
		return "is invalid"
	}
}
