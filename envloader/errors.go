package envloader

import (
	"fmt"
	"reflect"
)

// InvalidConfigError is returned when Load receives a config argument that is
// not a pointer to a struct.
type InvalidConfigError struct {
	// Value is the reflected type that was provided.
	Value reflect.Type
}

// Error returns a message naming the invalid argument type.
func (e *InvalidConfigError) Error() string {
	if e.Value.Kind() != reflect.Ptr {
		return fmt.Sprintf("envloader: config must be a pointer to struct, got %s", e.Value.Kind())
	}
	return fmt.Sprintf("envloader: config must be a pointer to struct, got pointer to %s", e.Value.Elem().Kind())
}

// FieldError is returned when assigning a value to a specific struct field
// fails. It typically wraps a strconv conversion error, a
// time.ParseDuration error or an UnsupportedTypeError.
type FieldError struct {
	// FieldName is the struct field name (e.g. "Port").
	FieldName string
	// EnvVar is the environment variable name (e.g. "APP_PORT").
	EnvVar string
	// Value is the raw value that caused the failure (e.g. "abc").
	Value string
	// Err is the wrapped original error.
	Err error
}

// Error returns a detailed field-level message.
func (e *FieldError) Error() string {
	return fmt.Sprintf("envloader: error setting field %s from env %s=%s: %v",
		e.FieldName, e.EnvVar, e.Value, e.Err)
}

// Unwrap returns the original error behind the FieldError.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// UnsupportedTypeError is returned when a struct field's type (e.g. map,
// slice, interface) has no conversion support.
type UnsupportedTypeError struct {
	// Type is the reflected type of the unsupported field.
	Type reflect.Type
}

// Error returns a message naming the unsupported type.
func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("envloader: unsupported type %s", e.Type)
}
