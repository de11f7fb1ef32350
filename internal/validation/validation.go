// Package validation evaluates declarative input schemas expressed as
// go-playground/validator struct tags and turns failures into field-keyed errors.
//
// Every input shape is a struct whose fields carry `json` and `validate` tags.
// A shape may also implement Messenger to supply human readable messages keyed
// by "<jsonField>.<tag>"; anything it does not cover falls back to a generic
// message for the tag.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FieldError describes why a single input field was rejected.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a set of field errors. It is returned whenever input is rejected
// before any mutation happens.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewError builds an Error from the given field errors.
func NewError(fields ...FieldError) *Error {
	return &Error{Fields: fields}
}

// Messenger is implemented by input shapes that customise their error messages.
type Messenger interface {
	ValidationMessages() map[string]string
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Validator wraps a configured validator.Validate. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags used by the API registered:
// "username" (letters, digits, underscore) and "strongpassword" (at least one
// upper case letter, one lower case letter and one digit).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})

	return &Validator{v: v}
}

// IsStrongPassword reports whether pw contains an upper case letter, a lower
// case letter and a digit.
func IsStrongPassword(pw string) bool {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// Struct validates s and returns nil or an *Error holding one entry per
// rejected field, in declaration order.
func (val *Validator) Struct(s interface{}) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	var messages map[string]string
	if m, ok := s.(Messenger); ok {
		messages = m.ValidationMessages()
	}

	out := &Error{}
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(fe)
		if seen[field] {
			continue
		}
		seen[field] = true
		out.Fields = append(out.Fields, FieldError{Field: field, Message: message(fe, messages)})
	}
	return out
}

// fieldPath strips the root struct name from the namespace, so
// "CreatePostInput.files[0].name" becomes "files[0].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError, custom map[string]string) string {
	if msg, ok := custom[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return field + " does not match"
	default:
		return field + " format is invalid"
	}
}
