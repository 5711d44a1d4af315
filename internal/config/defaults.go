package config

const (
	// DefaultCallbackPort is the loopback port the provider redirects to.
	DefaultCallbackPort = 3000

	// DefaultCallbackTimeoutSeconds bounds the browser round-trip.
	DefaultCallbackTimeoutSeconds = 300

	// DefaultRefreshSkewSeconds is how long before expiry tokens are
	// refreshed proactively.
	DefaultRefreshSkewSeconds = 120
)

// DefaultScopes are requested when the config names none. offline_access
// asks the provider for a refresh token.
func DefaultScopes() []string {
	return []string{"openid", "profile", "email", "offline_access"}
}

// GetDefaultConfig returns the configuration used when no config file
// exists. Provider fields have no usable defaults and must come from the
// file or flags.
func GetDefaultConfig() Config {
	return Config{
		Provider: Provider{
			Scopes: DefaultScopes(),
		},
		Callback: Callback{
			Port:           DefaultCallbackPort,
			TimeoutSeconds: DefaultCallbackTimeoutSeconds,
		},
		Refresh: Refresh{
			SkewSeconds: DefaultRefreshSkewSeconds,
		},
	}
}
