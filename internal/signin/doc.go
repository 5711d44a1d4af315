// Package signin drives the interactive, browser-based sign-in flow on top
// of the oidc protocol client and the lifecycle manager. It is the
// authentication orchestrator: the core packages never open browsers or run
// HTTP servers themselves.
package signin
