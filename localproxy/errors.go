package localproxy

import "fmt"

// RuntimeError reports a failed interaction with the container runtime.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("localproxy: %s: %s", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// UnsupportedPlatformError reports a host architecture with no published
// localproxy image.
type UnsupportedPlatformError struct {
	Machine string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("localproxy: unsupported architecture %q", e.Machine)
}
