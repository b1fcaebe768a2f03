package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Storage errors reported by the node API
	ErrOverQuota        = fmt.Errorf("storage quota exceeded")
	ErrPreOverQuota     = fmt.Errorf("not enough storage quota")
	ErrForeignNode      = fmt.Errorf("destination belongs to another account")
	ErrNodeNotFound     = fmt.Errorf("node does not exist")
	ErrParentNotFound   = fmt.Errorf("parent node does not exist")
	ErrPermissionDenied = fmt.Errorf("permission denied")
	ErrEmptyPlaylist    = fmt.Errorf("playlist is empty")

	// Resolution workflow errors
	ErrMissingRenameName = fmt.Errorf("rename requires a target name")
	ErrInvalidDecision   = fmt.Errorf("invalid decision")
	ErrClosed            = fmt.Errorf("workflow closed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// IsHardError reports whether err belongs to the class that must interrupt a batch
// in progress and be shown to the user immediately: quota exhaustion and foreign-node
// restrictions. Every other per-item failure is counted and the batch continues.
func IsHardError(err error) bool {
	return errors.Is(err, ErrOverQuota) ||
		errors.Is(err, ErrPreOverQuota) ||
		errors.Is(err, ErrForeignNode)
}
