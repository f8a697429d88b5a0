package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (host unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code without a SOAP fault)
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed description, SCPD or SOAP response
	ErrTypeParse
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a transport or parse failure while talking to a device.
// Parse failures (ErrTypeParse) are the ParseError of the error taxonomy;
// every other type is a TransportError.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	URL        string    // Request URL (for context)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.URL != "" {
		msg += " [" + e.URL + "]"
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, requestURL string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &Error{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			URL:       requestURL,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			URL:       requestURL,
			Err:       err,
			Retryable: false,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &Error{
				Type:      ErrTypeConnectionRefused,
				Message:   "device refused connection",
				URL:       requestURL,
				Err:       err,
				Retryable: true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &Error{
				Type:      ErrTypeNetwork,
				Message:   "host unreachable",
				URL:       requestURL,
				Err:       err,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return ClassifyNetworkError(urlErr.Err, requestURL)
	}

	return &Error{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		URL:       requestURL,
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, requestURL string, err error) *Error {
	classified := ClassifyNetworkError(err, requestURL)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &Error{
		Type:      ErrTypeNetwork,
		Message:   message,
		URL:       requestURL,
		Retryable: true,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, requestURL string, message string) *Error {
	return &Error{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		URL:        requestURL,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *Error {
	return &Error{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// Fault is the SOAP fault body returned by a device, including the UPnPError detail.
type Fault struct {
	Code             string // faultcode, usually "s:Client"
	String           string // faultstring, usually "UPnPError"
	ErrorCode        string // UPnPError/errorCode, e.g. "401"
	ErrorDescription string // UPnPError/errorDescription, e.g. "Invalid Action"
}

// RemoteFaultError is returned by Call when the device answers with a SOAP fault.
type RemoteFaultError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Fault      *Fault
}

// Error implements the error interface
func (e *RemoteFaultError) Error() string {
	if e.Fault == nil {
		return fmt.Sprintf("remote fault (HTTP %d)", e.StatusCode)
	}
	if e.Fault.ErrorCode != "" {
		return fmt.Sprintf("remote fault (HTTP %d): %s %s: UPnPError %s %s",
			e.StatusCode, e.Fault.Code, e.Fault.String, e.Fault.ErrorCode, e.Fault.ErrorDescription)
	}
	return fmt.Sprintf("remote fault (HTTP %d): %s %s", e.StatusCode, e.Fault.Code, e.Fault.String)
}

// IsTransportError checks if an error is a transport error (network, timeout, DNS or HTTP)
func IsTransportError(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Type != ErrTypeParse
	}
	return false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Type == ErrTypeNetwork ||
			tErr.Type == ErrTypeTimeout ||
			tErr.Type == ErrTypeConnectionRefused ||
			tErr.Type == ErrTypeDNS
	}
	return false
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Type == ErrTypeHTTP
	}
	return false
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Type == ErrTypeParse
	}
	return false
}

// IsRemoteFault checks if an error is a SOAP fault from the device
func IsRemoteFault(err error) bool {
	var fErr *RemoteFaultError
	return errors.As(err, &fErr)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Retryable
	}
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) []string {
	var fErr *RemoteFaultError
	if errors.As(err, &fErr) {
		return []string{
			"The device rejected the action.",
			"Check the argument count and values against 'upnp-cp actions'",
			"Some actions require a preceding call (e.g. SetAVTransportURI before Play)",
		}
	}

	var tErr *Error
	if !errors.As(err, &tErr) {
		return nil
	}

	switch tErr.Type {
	case ErrTypeTimeout:
		return []string{
			"The device did not respond in time.",
			"Check that the device is powered on and on the same network",
			"Try increasing the HTTP timeout",
		}
	case ErrTypeConnectionRefused:
		return []string{
			"The device refused the connection.",
			"The LOCATION port may have changed since discovery - search again",
		}
	case ErrTypeDNS:
		return []string{
			"Could not resolve the device hostname.",
			"Devices normally advertise an IP address - check URLBase in the description",
		}
	case ErrTypeNetwork:
		return []string{
			"Network communication failed.",
			"Verify you are on the same network segment as the device",
			"Firewalls must allow UDP 1900 (SSDP) and the device's HTTP port",
		}
	case ErrTypeHTTP:
		if tErr.StatusCode >= 500 {
			return []string{
				fmt.Sprintf("The device returned an error (HTTP %d).", tErr.StatusCode),
				"This is usually a device firmware issue - try rebooting the device",
			}
		}
		return []string{
			fmt.Sprintf("The device returned HTTP %d.", tErr.StatusCode),
			"The description may reference a URL the device does not serve",
		}
	case ErrTypeParse:
		return []string{
			"Failed to parse the device's response.",
			"Run with --log-level debug to see the raw document",
		}
	default:
		return nil
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var fErr *RemoteFaultError
	if errors.As(err, &fErr) {
		if fErr.Fault != nil && fErr.Fault.ErrorDescription != "" {
			return fmt.Sprintf("Device fault %s: %s", fErr.Fault.ErrorCode, fErr.Fault.ErrorDescription)
		}
		return fmt.Sprintf("Device fault (HTTP %d)", fErr.StatusCode)
	}

	var tErr *Error
	if !errors.As(err, &tErr) {
		return err.Error()
	}

	switch tErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", tErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse device response"
	default:
		return strings.TrimSpace(tErr.Message)
	}
}
