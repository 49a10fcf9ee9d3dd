package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"smart-audio/internal/api/errors"
)

// Validator interface for domain validation
type Validator interface {
	Validate() error
}

// ValidateForm binds multipart or urlencoded form fields and validates
// both struct tags and domain rules
func ValidateForm(c *gin.Context, req interface{}) error {
	if err := c.ShouldBind(req); err != nil {
		return errors.NewValidationError("Validation failed", fieldErrors(err, "form", "invalid form data"))
	}
	return validateDomain(req)
}

// ValidateQuery validates query parameters
func ValidateQuery(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindQuery(req); err != nil {
		apiErr := errors.NewBadRequestError("Invalid query parameters")
		apiErr.Details = fieldErrors(err, "query", "invalid query parameters")
		return apiErr
	}
	return validateDomain(req)
}

func validateDomain(req interface{}) error {
	if v, ok := req.(Validator); ok {
		return v.Validate()
	}
	return nil
}

func fieldErrors(err error, fallbackField, fallbackMessage string) map[string]string {
	details := make(map[string]string)

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		details[fallbackField] = fallbackMessage
		return details
	}
	for _, fieldError := range validationErrs {
		field := strings.ToLower(fieldError.Field())

		switch fieldError.Tag() {
		case "required":
			details[field] = "is required"
		case "min":
			details[field] = "is too small"
		case "max":
			details[field] = "is too large"
		case "oneof":
			details[field] = "must be one of the allowed values"
		default:
			details[field] = "is invalid"
		}
	}
	return details
}
