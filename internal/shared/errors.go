package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrFileNotFound       = fmt.Errorf("file not found in storage")
	ErrFeedNotFound       = fmt.Errorf("feed document not found")
	ErrBackupNotFound     = fmt.Errorf("backup archive not found")

	// Per-entry processing errors, each terminal for its entry only
	ErrConnectTimeout = fmt.Errorf("connect timed out")
	ErrReadStalled    = fmt.Errorf("download stalled")
	ErrToolFailure    = fmt.Errorf("transform tool failed")

	// Job errors
	ErrNoEntries   = fmt.Errorf("playlist contains no entries")
	ErrJobTimeout  = fmt.Errorf("job deadline exceeded")
	ErrJobNotFound = fmt.Errorf("job not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
