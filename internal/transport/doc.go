// Package transport implements the HTTP and SOAP exchanges a UPnP control
// point performs after discovery.
//
// # Operations
//
//   - Get: fetch a device description or SCPD document
//   - Call: POST a SOAP action envelope to a service control URL
//
// Both take a context.Context; the client's http.Client timeout bounds every
// request. GETs can be retried with exponential backoff (disabled by default)
// and fetched documents are cached briefly, so services of one device that
// share an SCPD URL fetch it once. SOAP calls are never retried.
//
// # Usage Example
//
//	client := transport.NewClient()
//	client.SetTimeout(5 * time.Second)
//
//	body, err := client.Get(ctx, "http://192.168.1.20:49152/description.xml")
//
//	resp, err := client.Call(ctx, &transport.ActionRequest{
//	    ControlURL:  "http://192.168.1.20:49152/upnp/control/ContentDirectory",
//	    ServiceType: "urn:schemas-upnp-org:service:ContentDirectory:1",
//	    Action:      "GetSystemUpdateID",
//	})
//	id, _ := resp.Field("Id")
//
// # Errors
//
// Failures are reported as *Error with a Type (network, timeout, DNS, HTTP,
// parse) or, when the device answers with a SOAP fault, as *RemoteFaultError
// carrying the HTTP status, headers, raw body and the parsed UPnPError detail.
// Use IsTransportError, IsParseError and IsRemoteFault to branch on them.
package transport
