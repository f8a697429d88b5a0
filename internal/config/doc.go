// Package config provides user configuration management for upnp-cp.
//
// This package manages a YAML-based configuration file holding the control
// point defaults (search target, response window, TTL, fault policy, the
// control point UUID) and a registry of devices seen in earlier searches,
// keyed by UDN. The configuration follows OS-specific conventions for
// storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/upnp-cp/config.yaml or $HOME/.config/upnp-cp/config.yaml
//   - macOS: $HOME/.config/upnp-cp/config.yaml
//   - Windows: %LOCALAPPDATA%\upnp-cp\config.yaml
//
// # Example File
//
//	version: 1
//	control_point:
//	  raise_on_remote_error: true
//	  search_target: ssdp:all
//	  max_wait_seconds: 3
//	  ttl: 4
//	  http_timeout_seconds: 10
//	  fetch_concurrency: 8
//	  friendly_name: upnp-cp
//	  uuid: 3f1c2a9e-8d1b-4c55-9f0e-2a7b6c5d4e3f
//	devices:
//	  uuid:4d696e69-444c-164e-9d41-001122334455:
//	    nickname: NAS
//	    friendly_name: MiniDLNA
//	    device_type: urn:schemas-upnp-org:device:MediaServer:1
//	    last_location: http://192.168.1.20:8200/rootDesc.xml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cp := controlpoint.New(registry.ControlPointConfig(), scanner, client)
//
//	registry.RecordDevice(udn, friendlyName, deviceType, location)
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
