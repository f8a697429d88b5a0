package transport

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError_Timeout(t *testing.T) {
	err := &url.Error{
		Op:  "Get",
		URL: "http://192.168.1.20:49152/description.xml",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &timeoutError{},
		},
	}

	tErr := ClassifyNetworkError(err, "http://192.168.1.20:49152/description.xml")

	if tErr == nil {
		t.Fatal("Expected *Error, got nil")
	}
	if tErr.Type != ErrTypeTimeout {
		t.Errorf("Expected error type %v, got %v", ErrTypeTimeout, tErr.Type)
	}
	if !tErr.Retryable {
		t.Error("Expected timeout error to be retryable")
	}
}

func TestClassifyNetworkError_ConnectionRefused(t *testing.T) {
	err := &url.Error{
		Op:  "Get",
		URL: "http://192.168.1.20",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: syscall.ECONNREFUSED,
		},
	}

	tErr := ClassifyNetworkError(err, "http://192.168.1.20")

	if tErr.Type != ErrTypeConnectionRefused {
		t.Errorf("Expected error type %v, got %v", ErrTypeConnectionRefused, tErr.Type)
	}
	if !IsNetworkError(tErr) {
		t.Error("connection refused should count as a network error")
	}
}

func TestClassifyNetworkError_DNS(t *testing.T) {
	err := &net.DNSError{
		Err:        "no such host",
		Name:       "nas.local",
		IsNotFound: true,
	}

	tErr := ClassifyNetworkError(err, "http://nas.local/desc.xml")

	if tErr.Type != ErrTypeDNS {
		t.Errorf("Expected error type %v, got %v", ErrTypeDNS, tErr.Type)
	}
	if tErr.Retryable {
		t.Error("DNS errors should not be retryable")
	}
	if !strings.Contains(tErr.Message, "nas.local") {
		t.Errorf("Message should name the host, got %q", tErr.Message)
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if got := ClassifyNetworkError(nil, ""); got != nil {
		t.Errorf("ClassifyNetworkError(nil) = %v, want nil", got)
	}
}

func TestNewHTTPError_Retryable(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{404, false},
		{412, false},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewHTTPError(tt.status, "http://h/x", "boom")
			if err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", err.Retryable, tt.retryable)
			}
			if !IsHTTPError(err) || !IsTransportError(err) {
				t.Error("HTTP error should be both HTTP and transport error")
			}
		})
	}
}

func TestIsParseError_Wrapped(t *testing.T) {
	base := NewParseError("bad scpd", errors.New("EOF"))
	wrapped := fmt.Errorf("fetch service: %w", base)

	if !IsParseError(wrapped) {
		t.Error("IsParseError should see through wrapping")
	}
	if IsTransportError(wrapped) {
		t.Error("parse errors are not transport errors")
	}
	if IsRetryable(wrapped) {
		t.Error("parse errors are not retryable")
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Type:    ErrTypeHTTP,
		Message: "unexpected status code: 404",
		URL:     "http://h/scpd.xml",
	}

	want := "HTTP Error: unexpected status code: 404 [http://h/scpd.xml]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestRemoteFaultError(t *testing.T) {
	err := &RemoteFaultError{
		StatusCode: 500,
		Fault: &Fault{
			Code:             "s:Client",
			String:           "UPnPError",
			ErrorCode:        "401",
			ErrorDescription: "Invalid Action",
		},
	}

	wrapped := fmt.Errorf("invoke: %w", err)
	if !IsRemoteFault(wrapped) {
		t.Error("IsRemoteFault should see through wrapping")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Error() should include the UPnP error code, got %q", err.Error())
	}
	if got := GetShortErrorMessage(err); got != "Device fault 401: Invalid Action" {
		t.Errorf("GetShortErrorMessage() = %q", got)
	}
	if hints := GetTroubleshootingHint(err); len(hints) == 0 {
		t.Error("expected troubleshooting hints for a remote fault")
	}
}

func TestGetShortErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"timeout", &Error{Type: ErrTypeTimeout}, "Device not responding (timeout)"},
		{"http", &Error{Type: ErrTypeHTTP, StatusCode: 404}, "Device error (HTTP 404)"},
		{"parse", NewParseError("x", nil), "Failed to parse device response"},
		{"plain", errors.New("plain failure"), "plain failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetShortErrorMessage(tt.err); got != tt.want {
				t.Errorf("GetShortErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetTroubleshootingHint_UnknownError(t *testing.T) {
	if hints := GetTroubleshootingHint(errors.New("x")); hints != nil {
		t.Errorf("GetTroubleshootingHint() = %v, want nil", hints)
	}
}
