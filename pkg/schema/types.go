package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
	Name() string
	// Validate checks if the string form of a value conforms to this type.
	Validate(value string) error
}

// StringType accepts any non-empty value.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}

// IntType validates integer values.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("expected int")
	}
	return nil
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("expected bool")
	}
	return nil
}

// EnumType accepts one of a fixed set of values, case-insensitively.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string {
	return strings.Join(t.values, "|")
}

func (t *EnumType) Validate(value string) error {
	for _, v := range t.values {
		if strings.EqualFold(v, strings.TrimSpace(value)) {
			return nil
		}
	}
	return fmt.Errorf("expected one of %s", strings.Join(t.values, ", "))
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(string) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value string) error {
	return t.validate(value)
}

// --- Factory Functions ---

// String creates a non-empty string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Enum creates a validator for one of values.
func Enum(values ...string) Type { return &EnumType{values: values} }

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(string) error) Type {
	return &CustomType{name: name, validate: validate}
}
