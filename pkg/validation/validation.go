package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func New() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// FormatError turns validator errors into a field -> message map suitable
// for a 400 response body.
func FormatError(err error) map[string]string {
	errors := make(map[string]string)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["body"] = "invalid request"
		return errors
	}

	for _, fieldErr := range validationErrs {
		field := strings.ToLower(fieldErr.Field())

		switch fieldErr.Tag() {
		case "required":
			errors[field] = fmt.Sprintf("%s is required", field)
		case "min":
			errors[field] = fmt.Sprintf("%s must be at least %s", field, fieldErr.Param())
		case "gt":
			errors[field] = fmt.Sprintf("%s must be greater than %s", field, fieldErr.Param())
		case "gte":
			errors[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fieldErr.Param())
		default:
			errors[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return errors
}
