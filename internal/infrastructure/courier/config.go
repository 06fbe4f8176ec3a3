package courier

import "errors"

// Config holds the courier-aggregation provider credentials and endpoint.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Validate checks that the configuration is complete
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("courier: base URL is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("courier: client credentials are required")
	}
	return nil
}
