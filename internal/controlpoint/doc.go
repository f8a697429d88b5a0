// Package controlpoint turns discovered UPnP devices into callable services.
//
// A ControlPoint runs one SSDP search through its Searcher, fetches every
// distinct device description, and then builds and binds a Service for each
// entry in the devices' service lists (embedded devices included):
//
//	cp := controlpoint.New(controlpoint.DefaultConfig(), discovery.NewScanner(), transport.NewClient())
//	if _, err := cp.FindDevices(ctx, "ssdp:all", 3*time.Second, 4); err != nil {
//	    return err
//	}
//	if _, err := cp.FindServices(ctx); err != nil {
//	    return err
//	}
//
//	cd, err := cp.Service("ContentDirectory")
//	if err != nil {
//	    return err
//	}
//	out, err := cd.Invoke(ctx, "GetSystemUpdateID")
//	// out["Id"] == int64(42)
//
// # Binding
//
// A Service starts out Unfetched. Fetch downloads its SCPD, fills the state
// table and only then binds one ActionFunc per declared action, so every
// bound action can coerce its out-arguments. A failed fetch leaves the
// service Failed with no bound actions.
//
// # Faults
//
// When a device answers an action with a SOAP fault, Config.RaiseOnRemoteError
// decides the outcome: an *ActionFault error, or a result map with the keys
// faultcode, faultstring, errorCode and errorDescription plus a warning log.
//
// Failures while fetching one device or service never abort the others.
// They are reported by Failures.
package controlpoint
