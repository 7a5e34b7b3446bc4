package serverutils

import (
	"fmt"
	"strings"

	"clinic-chat-be/internal/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and reports failures as ErrInvalidInput.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%s: %w", err.Error(), apperror.ErrInvalidInput)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(fields, ", "), apperror.ErrInvalidInput)
}
