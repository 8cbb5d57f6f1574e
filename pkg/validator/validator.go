// Package validator checks struct tags with go-playground/validator and
// turns failures into one readable line.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// duration accepts anything time.ParseDuration does.
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

// Struct validates s and returns an error listing every failed field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	return errors.New(GetErrorMsg(err))
}

// GetErrorMsg translates validation errors into user-friendly messages.
func GetErrorMsg(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return "invalid arguments"
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a URL", field))
		case "eth_addr":
			msgs = append(msgs, fmt.Sprintf("%s must be a 0x-prefixed address", field))
		case "duration":
			msgs = append(msgs, fmt.Sprintf("%s must be a duration such as 30s", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
