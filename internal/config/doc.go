// Package config loads and validates oidckit's YAML configuration. Files
// live under ~/.config/oidckit by default; a missing file falls back to
// defaults, a malformed one fails loudly.
package config
