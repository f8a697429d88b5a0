package controlpoint

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/muurk/upnpcp/internal/transport"
)

var (
	// ErrNoControlURL is returned when invoking an action on a service whose
	// description did not carry a control URL
	ErrNoControlURL = errors.New("service has no control URL")

	// ErrFetchInProgress is returned by Fetch while another fetch of the same
	// service is running
	ErrFetchInProgress = errors.New("service fetch already in progress")

	// ErrUnknownAction is returned by Invoke for an action the SCPD does not declare
	ErrUnknownAction = errors.New("unknown action")

	// ErrServiceNotFound is returned when no discovered service matches a lookup
	ErrServiceNotFound = errors.New("service not found")
)

// ArgumentError reports an action call with the wrong number of in-values
type ArgumentError struct {
	Action string
	Want   int
	Got    int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("action %s takes %d in-argument(s), got %d", e.Action, e.Want, e.Got)
}

// ActionFault is returned by an action call when the device answers with a
// SOAP fault and Config.RaiseOnRemoteError is set
type ActionFault struct {
	ServiceType string
	Action      string
	StatusCode  int
	Header      http.Header
	Body        []byte
	Fault       *transport.Fault

	Err *transport.RemoteFaultError
}

func (e *ActionFault) Error() string {
	msg := fmt.Sprintf("action %s failed with HTTP %d", e.Action, e.StatusCode)
	if e.Fault != nil && e.Fault.ErrorCode != "" {
		msg += fmt.Sprintf(": UPnPError %s", e.Fault.ErrorCode)
		if e.Fault.ErrorDescription != "" {
			msg += " (" + e.Fault.ErrorDescription + ")"
		}
	}
	return msg
}

// Unwrap exposes the underlying *transport.RemoteFaultError
func (e *ActionFault) Unwrap() error {
	return e.Err
}

func newActionFault(serviceType, action string, fault *transport.RemoteFaultError) *ActionFault {
	return &ActionFault{
		ServiceType: serviceType,
		Action:      action,
		StatusCode:  fault.StatusCode,
		Header:      fault.Header,
		Body:        fault.Body,
		Fault:       fault.Fault,
		Err:         fault,
	}
}

// Failure records a device or service that could not be fetched
type Failure struct {
	Location  string // device description URL
	ServiceID string // empty for device-level failures
	Err       error
}

func (f Failure) Error() string {
	if f.ServiceID != "" {
		return fmt.Sprintf("service %s (%s): %v", f.ServiceID, f.Location, f.Err)
	}
	return fmt.Sprintf("device %s: %v", f.Location, f.Err)
}
