package validation

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Validator collects every failed check so a caller can report all of them
// at once. Methods chain.
type Validator struct {
	errs []error
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) check(ok bool, format string, args ...interface{}) *Validator {
	if !ok {
		v.errs = append(v.errs, fmt.Errorf(format, args...))
	}
	return v
}

func (v *Validator) RequirePositive(value int, name string) *Validator {
	return v.check(value > 0, "%s must be positive", name)
}

func (v *Validator) RequirePositiveDuration(value time.Duration, name string) *Validator {
	return v.check(value > 0, "%s must be a positive duration", name)
}

// RequireOneOf rejects empty values and anything outside allowed
func (v *Validator) RequireOneOf(value string, allowed []string, name string) *Validator {
	if value == "" {
		return v.check(false, "%s is required", name)
	}
	return v.check(slices.Contains(allowed, value), "%s must be one of: %s", name, strings.Join(allowed, ", "))
}

// Validate records the error returned by fn, if any
func (v *Validator) Validate(fn func() error) *Validator {
	if err := fn(); err != nil {
		v.errs = append(v.errs, err)
	}
	return v
}

// ValidateIf runs fn only when cond holds
func (v *Validator) ValidateIf(cond bool, fn func() error) *Validator {
	if !cond {
		return v
	}
	return v.Validate(fn)
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

func (v *Validator) Errors() []error { return v.errs }

// Error is nil when every check passed, the single failure when there is
// one, and a joined summary otherwise.
func (v *Validator) Error() error {
	switch len(v.errs) {
	case 0:
		return nil
	case 1:
		return v.errs[0]
	}
	msgs := make([]string, len(v.errs))
	for i, err := range v.errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}
