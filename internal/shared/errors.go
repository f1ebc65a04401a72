package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Storage and cache errors
	ErrTimeout               = fmt.Errorf("operation timed out")
	ErrInitializationTimeout = fmt.Errorf("library initialization timed out")
	ErrStorageUnavailable    = fmt.Errorf("storage unavailable")
	ErrNoActiveProfile       = fmt.Errorf("no active profile")

	// Input validation errors
	ErrInvalidInput = fmt.Errorf("invalid input")
)
