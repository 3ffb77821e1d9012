package relay

import "fmt"

// ConfigurationError reports an invalid setting found during startup
// validation. It is fatal.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
}

// TransportAuthError reports that a transport rejected the identity probe at
// startup. It is fatal.
type TransportAuthError struct {
	Transport string
	Err       error
}

func (e *TransportAuthError) Error() string {
	return fmt.Sprintf("%s: identity probe failed: %v", e.Transport, e.Err)
}

func (e *TransportAuthError) Unwrap() error { return e.Err }

// RetrievalError reports that a media file could not be fetched from the
// source. The message it belongs to is dropped.
type RetrievalError struct {
	FileID string
	Err    error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve file %s: %v", e.FileID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// DeliveryError reports a failed post inside a chain. Posted chunks stay
// live on the destination; the remaining ones are never sent.
type DeliveryError struct {
	Index  int // chunk that failed
	Posted int // chunks already live
	Total  int
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver chunk %d/%d (%d already posted): %v", e.Index+1, e.Total, e.Posted, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
