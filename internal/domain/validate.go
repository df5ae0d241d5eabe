package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report JSON field names so messages match the request body.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Validate runs struct-tag validation and converts the first failure into an
// ErrValidation with a readable message.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "required_without_all":
		return fmt.Errorf("%w: %s is required", ErrValidation, fe.Field())
	case "email":
		return fmt.Errorf("%w: %s must be a valid email", ErrValidation, fe.Field())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Errorf("%w: %s must contain at least %s item(s)", ErrValidation, fe.Field(), fe.Param())
		}
		return fmt.Errorf("%w: %s must be at least %s characters", ErrValidation, fe.Field(), fe.Param())
	case "oneof":
		return fmt.Errorf("%w: %s must be one of [%s]", ErrValidation, fe.Field(), fe.Param())
	case "gt", "gte":
		return fmt.Errorf("%w: %s must be greater than %s", ErrValidation, fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%w: %s is invalid", ErrValidation, fe.Field())
	}
}

// Invalid builds an ErrValidation with the given message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
