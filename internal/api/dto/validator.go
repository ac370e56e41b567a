package dto

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/tickets/pkg/util/errorutil"
)

// Validator wraps go-playground/validator and reports the first failing
// field as a validation error.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that names fields by their json or form
// tag.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validate: v}
}

// Validate validates a struct using its validate tags.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok && len(validationErrors) > 0 {
			fe := validationErrors[0]
			return errorutil.NewValidationError(
				fmt.Sprintf("%s failed on '%s' validation", fe.Field(), fe.Tag()),
				map[string]any{"field": fe.Field()},
			)
		}
		return errorutil.NewValidationError(err.Error(), nil)
	}
	return nil
}
