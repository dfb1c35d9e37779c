package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/saradorri/cardgame/internal/domain"
)

// Validator checks struct tags and reports every failing field at once
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that names fields after their JSON tag
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Check validates value and returns the collected violations for entity.
// The result is never nil; call OrNil on it once all checks have run.
func (v *Validator) Check(entity string, value interface{}) *domain.ValidationError {
	verr := domain.NewValidationError(entity)

	err := v.validate.Struct(value)
	if err == nil {
		return verr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("", domain.ReasonInvalid)
		return verr
	}

	for _, fe := range fieldErrs {
		reason := domain.ReasonInvalid
		if fe.Tag() == "required" {
			reason = domain.ReasonRequired
		}
		verr.Add(fe.Field(), reason)
	}
	return verr
}
