package logging

// SERVICE_KEY is the key sub-loggers are tagged with to identify the service that logged an event.
const SERVICE_KEY = "service"

// These constants are used to identify the various services that may do some logging
const (
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
	// STATE_SERVICE is the constant used to identify the state package
	STATE_SERVICE = "state"
	// CACHE_SERVICE is the constant used to identify the cache package
	CACHE_SERVICE = "cache"
)
