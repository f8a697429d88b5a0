package config

import (
	"time"

	"github.com/google/uuid"

	"github.com/muurk/upnpcp/internal/controlpoint"
)

const (
	// DefaultSearchTarget is the ST used when neither the file nor a flag sets one
	DefaultSearchTarget = "ssdp:all"

	// DefaultMaxWaitSeconds is the default SSDP response window
	DefaultMaxWaitSeconds = 3.0

	// DefaultTTL is the default multicast hop limit
	DefaultTTL = 4

	// DefaultHTTPTimeoutSeconds bounds each description fetch and action call
	DefaultHTTPTimeoutSeconds = 10

	// DefaultFriendlyName is advertised in CPFN.UPNP.ORG
	DefaultFriendlyName = "upnp-cp"
)

// Registry represents the entire user configuration file.
// This stores the control point defaults and what is known about devices
// seen in earlier searches.
type Registry struct {
	Version      int                   `yaml:"version"`
	ControlPoint *ControlPointSettings `yaml:"control_point,omitempty"`
	Devices      map[string]*Device    `yaml:"devices,omitempty"` // Keyed by UDN

	path      string
	effective *ControlPointSettings // set by Override, never saved
}

// ControlPointSettings are the session defaults. Command-line flags override them.
type ControlPointSettings struct {
	RaiseOnRemoteError bool    `yaml:"raise_on_remote_error"`
	SearchTarget       string  `yaml:"search_target"`
	MaxWaitSeconds     float64 `yaml:"max_wait_seconds"`
	TTL                int     `yaml:"ttl"`
	HTTPTimeoutSeconds int     `yaml:"http_timeout_seconds"`
	FetchConcurrency   int     `yaml:"fetch_concurrency"`
	FriendlyName       string  `yaml:"friendly_name"`
	UUID               string  `yaml:"uuid,omitempty"` // Sent as CPUUID.UPNP.ORG
}

// Device represents what the user and previous searches know about one device.
type Device struct {
	Nickname     string    `yaml:"nickname,omitempty"`      // User-friendly name
	FriendlyName string    `yaml:"friendly_name,omitempty"` // From the device description
	DeviceType   string    `yaml:"device_type,omitempty"`   // e.g. urn:schemas-upnp-org:device:MediaServer:1
	LastLocation string    `yaml:"last_location,omitempty"` // Last description URL
	LastSeen     time.Time `yaml:"last_seen,omitempty"`     // Last discovery time
}

func defaultControlPointSettings() *ControlPointSettings {
	return &ControlPointSettings{
		RaiseOnRemoteError: true,
		SearchTarget:       DefaultSearchTarget,
		MaxWaitSeconds:     DefaultMaxWaitSeconds,
		TTL:                DefaultTTL,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		FetchConcurrency:   controlpoint.DefaultFetchConcurrency,
		FriendlyName:       DefaultFriendlyName,
		UUID:               uuid.NewString(),
	}
}

// NewRegistry creates a new Registry with default values and a freshly
// generated control point UUID.
func NewRegistry() *Registry {
	return &Registry{
		Version:      1,
		ControlPoint: defaultControlPointSettings(),
		Devices:      make(map[string]*Device),
	}
}

// Path returns the file the registry was loaded from and saves to
func (r *Registry) Path() string {
	return r.path
}

// Settings returns the effective control point settings: those passed to
// Override, otherwise the file's.
func (r *Registry) Settings() *ControlPointSettings {
	if r.effective != nil {
		return r.effective
	}
	return r.ControlPoint
}

// Override replaces the effective settings for this process. Save still
// writes the file's own settings.
func (r *Registry) Override(s ControlPointSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.effective = &s
	return nil
}

// ControlPointConfig returns the configuration handed to the control point
func (r *Registry) ControlPointConfig() controlpoint.Config {
	s := r.Settings()
	return controlpoint.Config{
		RaiseOnRemoteError: s.RaiseOnRemoteError,
		FetchConcurrency:   s.FetchConcurrency,
	}
}

// MaxWait returns the SSDP response window
func (s *ControlPointSettings) MaxWait() time.Duration {
	return time.Duration(s.MaxWaitSeconds * float64(time.Second))
}

// HTTPTimeout returns the per-request HTTP timeout
func (s *ControlPointSettings) HTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeoutSeconds) * time.Second
}

// GetDevice retrieves device metadata by UDN.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(udn string) *Device {
	return r.Devices[udn]
}

// EnsureDevice ensures a device entry exists in the registry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(udn string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[udn]; exists {
		return device
	}

	device := &Device{}
	r.Devices[udn] = device
	return device
}

// RecordDevice updates the last-seen data of a device after a search.
// Devices without a UDN are not recorded.
func (r *Registry) RecordDevice(udn, friendlyName, deviceType, location string) {
	if udn == "" {
		return
	}

	device := r.EnsureDevice(udn)
	device.FriendlyName = friendlyName
	device.DeviceType = deviceType
	device.LastLocation = location
	device.LastSeen = time.Now()
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(udn, nickname string) {
	device := r.EnsureDevice(udn)
	device.Nickname = nickname
}

// DisplayName returns the device's nickname if one is set, otherwise fallback.
func (r *Registry) DisplayName(udn, fallback string) string {
	if device := r.GetDevice(udn); device != nil && device.Nickname != "" {
		return device.Nickname
	}
	return fallback
}
