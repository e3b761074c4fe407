package snapshot

import "fmt"

var (
	// ErrNotFound is returned when no snapshot exists for the given token.
	ErrNotFound = fmt.Errorf("snapshot not found")
)
