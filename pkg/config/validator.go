package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SemanticError reports a configuration that passed structural validation but
// violates a cross-field rule.
type SemanticError struct {
	Msg string
}

func (e *SemanticError) Error() string { return e.Msg }

type semanticValidator interface {
	validateSemantics() error
}

// Validator checks loaded configuration structs.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate runs structural checks (struct tags) followed by the semantic
// checks a config type declares. All structural failures are reported in a
// single error.
func (v *Validator) Validate(cfg any) error {
	if err := v.validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", e.Field(), e.Tag()))
			}
			return fmt.Errorf("config validation:\n- %s", strings.Join(msgs, "\n- "))
		}
		return fmt.Errorf("config validation: %w", err)
	}

	if sv, ok := cfg.(semanticValidator); ok {
		if err := sv.validateSemantics(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}
	return nil
}
