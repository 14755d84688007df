// Package config holds application-wide configuration defaults.
package config

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultListLimit is the page size used when a task list request does
	// not specify one.
	DefaultListLimit = 50

	// MaxListLimit caps the page size a client may request.
	MaxListLimit = 200
)
