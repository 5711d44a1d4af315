package config

// Config is the top-level configuration for oidckit.
type Config struct {
	Provider Provider `yaml:"provider"`
	Callback Callback `yaml:"callback,omitempty"`
	Storage  Storage  `yaml:"storage,omitempty"`
	Refresh  Refresh  `yaml:"refresh,omitempty"`
}

// Provider identifies the OpenID Connect issuer and client registration.
type Provider struct {
	// IssuerURL is the base URL of the provider. Endpoint paths
	// (/auth, /token, /me, /session/end) are resolved against it.
	IssuerURL string `yaml:"issuerUrl"`

	// ClientID is the public client identifier.
	ClientID string `yaml:"clientId"`

	// Scopes requested during authorization. Defaults to
	// "openid profile email offline_access".
	Scopes []string `yaml:"scopes,omitempty"`

	// PostLogoutRedirectURI is passed on RP-initiated logout when set.
	PostLogoutRedirectURI string `yaml:"postLogoutRedirectUri,omitempty"`
}

// Callback configures the local loopback server that receives the
// authorization redirect.
type Callback struct {
	// Port for the loopback listener. The redirect URI registered with
	// the provider must use the same port.
	Port int `yaml:"port,omitempty"`

	// TimeoutSeconds bounds how long a login waits for the browser
	// round-trip before giving up.
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
}

// Storage configures where credentials are persisted.
type Storage struct {
	// Path of the credentials file. Defaults to
	// ~/.config/oidckit/credentials.json.
	Path string `yaml:"path,omitempty"`

	// Watch reloads the credentials file when another process replaces it.
	Watch bool `yaml:"watch,omitempty"`
}

// Refresh configures proactive token refresh.
type Refresh struct {
	// SkewSeconds is how long before expiry a refresh is initiated.
	SkewSeconds int `yaml:"skewSeconds,omitempty"`
}
