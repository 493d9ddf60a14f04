package regdns

import "fmt"

// ConfigError reports missing or invalid credentials, arguments, or options.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// TransportError wraps network and timeout failures of HTTP and DNS calls.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// AuthenticationError is returned when the identity endpoint rejects the credentials or answers without a usable token.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed with status %d: %s", e.StatusCode, e.Body)
}

// APIError is returned when a registrar DNS endpoint answers with a non-success status or an unusable body.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// NoAuthorityError is returned when no NS record can be found for a domain.
type NoAuthorityError struct {
	Domain string
}

func (e *NoAuthorityError) Error() string {
	return fmt.Sprintf("no authoritative nameserver found for %s", e.Domain)
}

// CacheError wraps failures of the persistent cache store.
type CacheError struct {
	Op  string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache %s: %s", e.Op, e.Err) }
func (e *CacheError) Unwrap() error { return e.Err }
