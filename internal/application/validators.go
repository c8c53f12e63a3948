package application

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// registerCustomValidators registers the validation functions referenced by
// Config struct tags.
// registerCustomValidators returns an error if any registration fails.
func registerCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	// Window bounds are shares of final turnout.
	if err := v.RegisterValidation("fraction", validateFraction); err != nil {
		return fmt.Errorf("failed to register fraction validator: %w", err)
	}

	return nil
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// validateFraction accepts floats strictly between 0 and 1.
func validateFraction(fl validator.FieldLevel) bool {
	f := fl.Field().Float()
	return f > 0 && f < 1
}

// describeFieldError renders a validator failure as "namespace: rule".
func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "fraction":
		return fmt.Sprintf("%s: must be between 0 and 1 exclusive, got %v", fe.Namespace(), fe.Value())
	case "gtfield":
		return fmt.Sprintf("%s: must be greater than %s", fe.Namespace(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s], got %v", fe.Namespace(), fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s: is required", fe.Namespace())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s: failed %s=%s, got %v", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s: failed %s, got %v", fe.Namespace(), fe.Tag(), fe.Value())
	}
}
