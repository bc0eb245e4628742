package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

const identifierTag = "required,max=128,printascii"

// ValidateID rejects empty, oversized, non-printable or space-padded identifiers.
func ValidateID(field, value string) error {
	if err := validate.Var(value, identifierTag); err != nil {
		return &ValidationError{Field: field, Value: value, Reason: reasonFor(err), kind: ErrInvalidIdentifier}
	}
	if strings.ContainsAny(value, " \t\r\n") {
		return &ValidationError{Field: field, Value: value, Reason: "must not contain whitespace", kind: ErrInvalidIdentifier}
	}
	return nil
}

// ParseTrigger converts raw input into a SweepTrigger. Empty input means manual.
func ParseTrigger(raw string) (SweepTrigger, error) {
	if raw == "" {
		return TriggerManual, nil
	}
	if err := validate.Var(raw, "oneof=manual automatic"); err != nil {
		return "", &ValidationError{Field: "triggerType", Value: raw, Reason: "must be manual or automatic", kind: ErrInvalidTrigger}
	}
	return SweepTrigger(raw), nil
}

func reasonFor(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err.Error()
	}
	switch errs[0].Tag() {
	case "required":
		return "is required"
	case "max":
		return "is longer than 128 characters"
	case "printascii":
		return "must be printable ASCII"
	}
	return "failed " + errs[0].Tag() + " check"
}
