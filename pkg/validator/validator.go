// Package validator wraps go-playground/validator with JSON field names and the phone rule.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^[\d\s+()-]+$`)

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return IsPhone(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		panic(err)
	}
	return v
})

// ValidationError is one failed rule on one field.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v))
	for _, failure := range v {
		rule := failure.Tag
		if failure.Param != "" {
			rule += "=" + failure.Param
		}
		parts = append(parts, failure.Field+" failed on "+rule)
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the `validate` tags of s. Rule failures come back as ValidationErrors.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	failures := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, ValidationError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return failures
}

var ruleMessages = map[string]string{
	"required":  "%s is required",
	"email":     "%s must be a valid email address",
	"phone":     "%s may only contain digits, spaces and + ( ) -",
	"min":       "%s must be at least %s characters",
	"max":       "%s must be at most %s characters",
	"oneof":     "%s must be one of: %s",
	"latitude":  "%s must be a valid latitude",
	"longitude": "%s must be a valid longitude",
}

// Describe turns ValidationErrors into a sentence for API clients.
func Describe(err error) string {
	var failures ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		messages = append(messages, describeOne(failure))
	}
	return strings.Join(messages, "; ")
}

func describeOne(failure ValidationError) string {
	field := strings.ToLower(strings.ReplaceAll(failure.Field, "_", " "))
	if field == "" {
		field = "field"
	}

	format, known := ruleMessages[failure.Tag]
	if !known {
		rule := failure.Tag
		if failure.Param != "" {
			rule += "=" + failure.Param
		}
		return fmt.Sprintf("%s failed validation: %s", field, rule)
	}
	if strings.Count(format, "%s") == 2 {
		return fmt.Sprintf(format, field, failure.Param)
	}
	return fmt.Sprintf(format, field)
}

// IsPhone reports whether value only contains digits, spaces and the characters + ( ) -.
func IsPhone(value string) bool {
	return phonePattern.MatchString(value)
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
