package crm

import (
	"errors"
	"net/url"
	"time"
)

const (
	// KeyCRMProductionAPIURL is the public KeyCRM open API endpoint
	KeyCRMProductionAPIURL = "https://openapi.keycrm.app/v1"
	// KeyCRMDefaultTimeout bounds every request to the CRM
	KeyCRMDefaultTimeout = 45 * time.Second
)

// Errors for KeyCRM configuration
var (
	ErrKeyCRMConfigInvalidBaseURL = errors.New("keycrm: API base URL must be an absolute http(s) URL")
	ErrKeyCRMConfigMissingAPIKey  = errors.New("keycrm: API key is required")
)

// KeyCRMConfig holds connection settings for the KeyCRM open API.
// The API key is per site and is passed with every call.
type KeyCRMConfig struct {
	// APIBaseURL is the base URL, without trailing slash
	APIBaseURL string
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration
}

// NewKeyCRMConfig creates a configuration pointing at the production API
func NewKeyCRMConfig() *KeyCRMConfig {
	return &KeyCRMConfig{
		APIBaseURL: KeyCRMProductionAPIURL,
		Timeout:    KeyCRMDefaultTimeout,
	}
}

// Validate fills defaults and checks the base URL
func (c *KeyCRMConfig) Validate() error {
	if c.APIBaseURL == "" {
		c.APIBaseURL = KeyCRMProductionAPIURL
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrKeyCRMConfigInvalidBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = KeyCRMDefaultTimeout
	}
	return nil
}
