package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

// StructValidator validates tagged request structs using go-playground/validator
type StructValidator struct {
	validator *validator.Validate
}

// NewStructValidator creates a validator that reports fields by their JSON names
func NewStructValidator() *StructValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &StructValidator{validator: v}
}

// ValidateStruct validates a struct using its tags and returns a ValidationError
func (sv *StructValidator) ValidateStruct(s interface{}) error {
	err := sv.validator.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ValidationError(err.Error())
	}

	messages := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = formatFieldError(fe)
	}
	if len(messages) == 1 {
		return errors.ValidationError(messages[0])
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s characters", fe.Field(), fe.Param())
	case "printascii":
		return fmt.Sprintf("field '%s' must contain printable ASCII only", fe.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag())
	}
}

var globalValidator = NewStructValidator()

// ValidateStruct validates a struct using the shared validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// TargetURL parses a URL submitted for enrichment. Only absolute http and
// https URLs with a host are accepted.
func TargetURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.ValidationError("URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil, errors.ValidationError("Invalid URL format")
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, errors.ValidationError("Only HTTP/HTTPS URLs are allowed")
	}

	if u.Host == "" {
		return nil, errors.ValidationError("Invalid URL format")
	}
	return u, nil
}
