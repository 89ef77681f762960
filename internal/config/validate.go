package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance reports fields by their config key (mapstructure tag)
// rather than the Go field name.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := keyOf(f); name != "-" {
				return name
			}
			return ""
		})
	})
	return validate
}

// Validate checks values that would make the client misbehave. Every
// failing key is reported.
func (c *Config) Validate() error {
	err := validatorInstance().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: %w", err)
	}

	var result *multierror.Error
	for _, fe := range fieldErrs {
		result = multierror.Append(result, fieldError(fe))
	}
	return result.ErrorOrNil()
}

func fieldError(fe validator.FieldError) error {
	key := stripPrefix(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("config: %s is required", key)
	case "required_with":
		return fmt.Errorf("config: %s is required when %s is set", key, siblingKey(key, fe.Param()))
	case "url":
		return fmt.Errorf("config: %s must be an absolute URL, got %q", key, fe.Value())
	case "gt":
		return fmt.Errorf("config: %s must be positive, got %v", key, fe.Value())
	case "gte":
		return fmt.Errorf("config: %s must be >= 0, got %v", key, fe.Value())
	default:
		return fmt.Errorf("config: %s has invalid value %v: %s", key, fe.Value(), fe.Tag())
	}
}

// stripPrefix drops the root struct name from a namespace such as
// "Config.poll.interval".
func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}

// siblingKey maps the Go field name in a required_with param to the config
// key of that field, a sibling of key.
func siblingKey(key, field string) string {
	parts := strings.Split(key, ".")
	t := reflect.TypeOf(Config{})
	for _, p := range parts[:len(parts)-1] {
		f, ok := fieldByKey(t, p)
		if !ok {
			return field
		}
		t = f.Type
	}
	f, ok := t.FieldByName(field)
	if !ok {
		return field
	}
	return strings.Join(append(parts[:len(parts)-1:len(parts)-1], keyOf(f)), ".")
}

func fieldByKey(t reflect.Type, key string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); keyOf(f) == key {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func keyOf(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
	return name
}
