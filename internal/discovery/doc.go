// Package discovery implements the SSDP search round of a UPnP control point.
//
// A search sends one M-SEARCH to the SSDP multicast group 239.255.255.250:1900
// and collects every answer that arrives within the response window. Each
// answer that carries a LOCATION header becomes a Record; everything else is
// dropped and logged at debug level.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	records, err := scanner.Search(ctx, "ssdp:all", 3*time.Second, 4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, rec := range records {
//	    fmt.Printf("%s -> %s\n", rec.USN, rec.Location)
//	}
//
// Devices usually answer several times per search (once per device, service
// and embedded device type), so the same LOCATION commonly appears in more
// than one Record. Deduplication is left to the caller.
//
// # M-SEARCH Request
//
// The request carries HOST, MAN, MX (the window rounded up to whole seconds,
// at least 1), ST, USER-AGENT and the UDA 2.0 control point headers
// CPFN.UPNP.ORG and CPUUID.UPNP.ORG.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment (or within TTL hops)
// - Firewall must allow inbound UDP responses to the ephemeral search port
package discovery
