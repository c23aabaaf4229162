package lead

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigMissing is wrapped by every ConfigError
	ErrConfigMissing   = errors.New("lead: integration setting not configured")
	ErrSkuUnresolved   = errors.New("lead: no SKU configured for host")
	ErrProductNotFound = errors.New("lead: product not found")
	ErrPhoneMissing    = errors.New("lead: phone number not given")
)

// User-facing messages returned to the form layer
const (
	MessageProductNotFound = "Product not found"
	MessagePhoneMissing    = "Phone number not given"
	MessageLeadAccepted    = "Your data inserted on KeyCRM."
)

// ConfigError reports a required setting that is absent
type ConfigError struct {
	// Field is the human-readable name of the missing setting
	Field string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not configured", e.Field)
}

// Unwrap allows errors.Is(err, ErrConfigMissing)
func (e *ConfigError) Unwrap() error {
	return ErrConfigMissing
}
