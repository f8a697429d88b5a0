package controlpoint

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/upnpcp/internal/description"
	"github.com/muurk/upnpcp/internal/discovery"
	"github.com/muurk/upnpcp/internal/logging"
	"github.com/muurk/upnpcp/internal/transport"
)

// DefaultFetchConcurrency bounds concurrent description and SCPD fetches
const DefaultFetchConcurrency = 8

// Config is the per-session control point configuration. It is passed by
// value and never changes once a ControlPoint has been built.
type Config struct {
	// RaiseOnRemoteError turns SOAP faults into *ActionFault errors.
	// When false, a fault yields a best-effort result map and a warning log.
	RaiseOnRemoteError bool

	// FetchConcurrency bounds concurrent HTTP fetches (<= 0 = default)
	FetchConcurrency int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		RaiseOnRemoteError: true,
		FetchConcurrency:   DefaultFetchConcurrency,
	}
}

func (c Config) withDefaults() Config {
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = DefaultFetchConcurrency
	}
	return c
}

// Transport is the HTTP and SOAP collaborator
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Call(ctx context.Context, req *transport.ActionRequest) (*transport.ActionResponse, error)
}

// Searcher runs one SSDP search round
type Searcher interface {
	Search(ctx context.Context, searchType string, maxWait time.Duration, ttl int) ([]*discovery.Record, error)
}

// Device is a discovered device and its parsed description
type Device struct {
	Location    string
	Record      *discovery.Record
	Description *description.DeviceDescription
	BaseURL     string
	Services    []*Service

	// Err is set when the description could not be fetched or parsed
	Err error
}

// FriendlyName returns the root device's friendly name, falling back to the location
func (d *Device) FriendlyName() string {
	if d.Description != nil && d.Description.Device.FriendlyName != "" {
		return d.Description.Device.FriendlyName
	}
	return d.Location
}

// UDN returns the root device's UDN, falling back to the USN of the search record
func (d *Device) UDN() string {
	if d.Description != nil && d.Description.Device.UDN != "" {
		return d.Description.Device.UDN
	}
	if d.Record != nil {
		return d.Record.UDN()
	}
	return ""
}

// ControlPoint discovers devices and binds their services
type ControlPoint struct {
	cfg       Config
	scanner   Searcher
	transport Transport

	mu       sync.RWMutex
	devices  []*Device
	services []*Service
	failures []Failure
}

// New creates a control point
func New(cfg Config, scanner Searcher, client Transport) *ControlPoint {
	return &ControlPoint{
		cfg:       cfg.withDefaults(),
		scanner:   scanner,
		transport: client,
	}
}

// Config returns the control point's configuration
func (cp *ControlPoint) Config() Config {
	return cp.cfg
}

// FindDevices runs one search round and fetches the description of every
// distinct LOCATION. A failed search fails the call; a device whose
// description cannot be fetched is kept with Err set and does not affect
// the others.
func (cp *ControlPoint) FindDevices(ctx context.Context, searchType string, maxWait time.Duration, ttl int) ([]*Device, error) {
	records, err := cp.scanner.Search(ctx, searchType, maxWait, ttl)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	seen := make(map[string]bool, len(records))
	devices := make([]*Device, 0, len(records))
	for _, record := range records {
		if seen[record.Location] {
			continue
		}
		seen[record.Location] = true
		devices = append(devices, &Device{Location: record.Location, Record: record})
	}

	logging.Debug("Fetching device descriptions",
		zap.Int("records", len(records)),
		zap.Int("locations", len(devices)),
	)

	var g errgroup.Group
	g.SetLimit(cp.cfg.FetchConcurrency)
	for _, device := range devices {
		device := device
		g.Go(func() error {
			cp.fetchDevice(ctx, device)
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for _, device := range devices {
		if device.Err != nil {
			failures = append(failures, Failure{Location: device.Location, Err: device.Err})
		}
	}

	cp.mu.Lock()
	cp.devices = devices
	cp.services = nil
	cp.failures = failures
	cp.mu.Unlock()

	return devices, nil
}

func (cp *ControlPoint) fetchDevice(ctx context.Context, device *Device) {
	raw, err := cp.transport.Get(ctx, device.Location)
	if err != nil {
		device.Err = fmt.Errorf("failed to fetch description: %w", err)
		logging.Warn("Device description fetch failed",
			zap.String("location", device.Location),
			zap.Error(err),
		)
		return
	}

	desc, err := description.ParseDeviceDescription(raw)
	if err != nil {
		device.Err = fmt.Errorf("failed to parse description: %w", err)
		logging.LogRawBytes("Unparseable device description", raw)
		logging.Warn("Device description parse failed",
			zap.String("location", device.Location),
			zap.Error(err),
		)
		return
	}

	device.Description = desc
	device.BaseURL = desc.BaseURL(device.Location)

	logging.Debug("Device description parsed",
		zap.String("location", device.Location),
		zap.String("friendly_name", desc.Device.FriendlyName),
		zap.String("base_url", device.BaseURL),
	)
}

// FindServices builds a Service for every service of every device found by
// the last FindDevices (embedded devices included) and fetches them
// concurrently. A service that fails to fetch stays in StateFailed and is
// recorded in Failures; it never aborts its siblings. With no devices the
// result is empty and the error nil.
func (cp *ControlPoint) FindServices(ctx context.Context) ([]*Service, error) {
	cp.mu.RLock()
	devices := append([]*Device(nil), cp.devices...)
	cp.mu.RUnlock()

	services := make([]*Service, 0)
	for _, device := range devices {
		device.Services = nil
		if device.Err != nil || device.Description == nil {
			continue
		}

		desc, location := device.Description, device.Location
		resolve := func(ref string) string { return desc.ResolveURL(location, ref) }

		for _, dev := range desc.AllDevices() {
			for _, info := range dev.Services {
				svc := newService(device.BaseURL, info, cp.cfg, cp.transport, resolve)
				svc.DeviceUDN = dev.UDN
				device.Services = append(device.Services, svc)
				services = append(services, svc)
			}
		}
	}

	var (
		g        errgroup.Group
		failMu   sync.Mutex
		failures []Failure
	)
	g.SetLimit(cp.cfg.FetchConcurrency)

	for _, device := range devices {
		for _, svc := range device.Services {
			svc := svc
			location := device.Location
			g.Go(func() error {
				if err := svc.Fetch(ctx); err != nil {
					logging.Warn("Service fetch failed",
						zap.String("service_id", svc.ServiceID),
						zap.String("scpd_url", svc.SCPDURL),
						zap.Error(err),
					)
					failMu.Lock()
					failures = append(failures, Failure{Location: location, ServiceID: svc.ServiceID, Err: err})
					failMu.Unlock()
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	cp.mu.Lock()
	cp.services = services
	cp.failures = append(cp.deviceFailures(), failures...)
	cp.mu.Unlock()

	logging.Info("Services bound",
		zap.Int("services", len(services)),
		zap.Int("failures", len(failures)),
	)

	return services, nil
}

// deviceFailures returns the device-level failures. Caller holds cp.mu.
func (cp *ControlPoint) deviceFailures() []Failure {
	var failures []Failure
	for _, f := range cp.failures {
		if f.ServiceID == "" {
			failures = append(failures, f)
		}
	}
	return failures
}

// Devices returns the devices found by the last FindDevices
func (cp *ControlPoint) Devices() []*Device {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]*Device(nil), cp.devices...)
}

// Services returns the services built by the last FindServices
func (cp *ControlPoint) Services() []*Service {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]*Service(nil), cp.services...)
}

// Failures returns the device and service fetch failures of the last round
func (cp *ControlPoint) Failures() []Failure {
	cp.mu.RLock()
	defer cp.mu.RUnlock()
	return append([]Failure(nil), cp.failures...)
}

// Service finds a service by, in order of preference: exact service ID,
// exact service type, short service type ("ContentDirectory:1") or the last
// component of the service ID ("ContentDirectory").
func (cp *ControlPoint) Service(key string) (*Service, error) {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	matchers := []func(*Service) bool{
		func(s *Service) bool { return s.ServiceID == key },
		func(s *Service) bool { return s.ServiceType == key },
		func(s *Service) bool { return description.ShortServiceType(s.ServiceType) == key },
		func(s *Service) bool {
			idx := strings.LastIndex(s.ServiceID, ":")
			return idx >= 0 && s.ServiceID[idx+1:] == key
		},
	}

	for _, match := range matchers {
		for _, svc := range cp.services {
			if match(svc) {
				return svc, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, key)
}
