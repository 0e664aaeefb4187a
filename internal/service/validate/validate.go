// Package validate runs go-playground/validator over service inputs and
// turns its errors into apperr validation failures keyed by JSON field name.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// dateLayouts are the accepted forms of a date field, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var v = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})

	// Nullable fields validate their value; an absent or null field behaves
	// like a nil pointer.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if n, ok := field.Interface().(model.Nullable[string]); ok && n.Valid {
			return n.Value
		}
		return nil
	}, model.Nullable[string]{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if n, ok := field.Interface().(model.Nullable[int64]); ok && n.Valid {
			return n.Value
		}
		return nil
	}, model.Nullable[int64]{})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseDate parses an RFC 3339 timestamp, a "YYYY-MM-DD HH:MM:SS" UTC
// timestamp or a plain "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Struct validates in. Field failures come back as an *apperr.Error of kind
// validation with one message per field.
func Struct(in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = message(fe)
	}
	return apperr.Validation(fields)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "max":
		if isString {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", field, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field confirmation does not match.", field)
	case "oneof", "gt":
		return fmt.Sprintf("The selected %s is invalid.", field)
	case "date":
		return fmt.Sprintf("The %s field must be a valid date.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
