package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"dictate/recorder"
)

var (
	validate *validator.Validate
	once     sync.Once
)

var ErrInvalid = errors.New("invalid configuration")

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("mapstructure")
		})
		validate.RegisterValidation("target", func(fl validator.FieldLevel) bool {
			return ValidTarget(fl.Field().String())
		})
	})
	return validate
}

// ValidTarget accepts clipboard, paste, stdout and file:<path>.
func ValidTarget(s string) bool {
	switch s {
	case "clipboard", "paste", "stdout":
		return true
	}
	path, ok := strings.CutPrefix(s, "file:")
	return ok && path != ""
}

func (c *Config) Validate() error {
	var msgs []string
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, e := range verrs {
			msgs = append(msgs, fieldName(e)+": "+formatValidationError(e))
		}
	}
	if err := recorder.ValidateTemplate(c.Recorder.Command); err != nil {
		msgs = append(msgs, "recorder.command: "+err.Error())
	}
	if len(msgs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}
	return nil
}

// fieldName turns "Config.uploader.endpoint" into "uploader.endpoint".
func fieldName(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must not be negative"
	case "min":
		return "must have at least " + e.Param() + " element(s)"
	case "max":
		return "must be at most " + e.Param() + " characters"
	case "alpha":
		return "must contain only letters"
	case "alphanum":
		return "must contain only letters and digits"
	case "target":
		return "must be clipboard, paste, stdout or file:<path>"
	default:
		return "failed " + e.Tag() + " validation"
	}
}
