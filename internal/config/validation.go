package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks that the configuration is complete enough to run a
// sign-in flow against a provider.
func Validate(c Config) error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Provider.IssuerURL) == "" {
		errs.Add("provider.issuerUrl", "is required", c.Provider.IssuerURL)
	} else if u, err := url.Parse(c.Provider.IssuerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("provider.issuerUrl", "must be an absolute URL", c.Provider.IssuerURL)
	}

	if strings.TrimSpace(c.Provider.ClientID) == "" {
		errs.Add("provider.clientId", "is required", c.Provider.ClientID)
	}

	if c.Callback.Port < 0 || c.Callback.Port > 65535 {
		errs.Add("callback.port", "must be between 0 and 65535", c.Callback.Port)
	}

	if c.Callback.TimeoutSeconds < 0 {
		errs.Add("callback.timeoutSeconds", "must not be negative", c.Callback.TimeoutSeconds)
	}

	if c.Refresh.SkewSeconds < 0 {
		errs.Add("refresh.skewSeconds", "must not be negative", c.Refresh.SkewSeconds)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
