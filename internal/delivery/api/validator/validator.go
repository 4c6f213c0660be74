// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	"reflect"
	"strings"

	"tasktracker/internal/errors"

	playground "github.com/go-playground/validator/v10"
)

// FieldError is one failed rule, named by the JSON field it applies to.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Message renders the failure in plain English.
func (f FieldError) Message() string {
	switch f.Rule {
	case "required":
		return f.Field + " is required"
	case "email":
		return f.Field + " must be a valid email address"
	case "min":
		return f.Field + " must be at least " + f.Param + " characters"
	case "max":
		return f.Field + " must be at most " + f.Param + " characters"
	default:
		return f.Field + " failed the " + f.Rule + " rule"
	}
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, f.Message())
	}

	return strings.Join(messages, "; ")
}

// Validator implements echo.Validator.
type Validator struct {
	validate *playground.Validate
}

// New builds a validator that reports fields by their json tag.
func New() *Validator {
	validate := playground.New(playground.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}

		return name
	})

	return &Validator{validate: validate}
}

// Validate returns a *ValidationError for rule failures and wraps anything else.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrors, ok := errors.Find[playground.ValidationErrors](err)
	if !ok {
		return errors.Wrap(err, "validator misconfigured")
	}

	result := &ValidationError{Fields: make([]FieldError, 0, len(fieldErrors))}
	for _, fe := range fieldErrors {
		result.Fields = append(result.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}

	return result
}
