package tunnel

import "fmt"

// ServiceError reports a failed call to the secure tunneling service.
type ServiceError struct {
	Op  string
	Err error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("secure tunneling: %s: %s", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ProtocolError reports a response the service accepted but that does
// not carry a usable credential.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("secure tunneling: %s", e.Reason)
}
