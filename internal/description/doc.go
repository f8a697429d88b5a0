// Package description parses UPnP device descriptions and service control
// protocol descriptions (SCPDs) into plain Go values.
//
// A device description is the <root> document served at a device's LOCATION.
// ParseDeviceDescription returns its spec version, optional URLBase and the
// device tree; AllServices flattens the serviceList of the root device and
// every embedded device:
//
//	desc, err := description.ParseDeviceDescription(body)
//	if err != nil {
//	    return err
//	}
//	base := desc.BaseURL(location)
//	for _, svc := range desc.AllServices() {
//	    scpdURL := urls.Build(base, svc.SCPDURL)
//	}
//
// An SCPD lists a service's actions and its serviceStateTable. ParseSCPD
// rejects documents that declare the same action twice.
//
// Repeated XML elements always decode into slices, so a document with a
// single service, action or state variable needs no special handling.
// Parse failures are *transport.Error values of type ErrTypeParse.
package description
