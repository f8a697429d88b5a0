package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/upnpcp/internal/config"
	"github.com/muurk/upnpcp/internal/controlpoint"
	"github.com/muurk/upnpcp/internal/discovery"
	"github.com/muurk/upnpcp/internal/logging"
	"github.com/muurk/upnpcp/internal/transport"
	"github.com/muurk/upnpcp/internal/ui"
	"github.com/muurk/upnpcp/internal/version"
)

// session is one configured control point plus the registry it records into
type session struct {
	registry *config.Registry
	settings *config.ControlPointSettings
	client   *transport.Client
	cp       *controlpoint.ControlPoint
	printer  *ui.Printer
}

// loadRegistry reads --config, or the shared default registry when unset
func loadRegistry() (*config.Registry, error) {
	if configPath == "" {
		return config.LoadRegistry()
	}
	return config.Load(configPath)
}

// newSession loads the configuration file, applies flag overrides and
// builds the control point.
func newSession(cmd *cobra.Command) (*session, error) {
	registry, err := loadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	settings := *registry.ControlPoint
	flags := cmd.Flags()
	if flags.Changed("st") {
		settings.SearchTarget = searchTarget
	}
	if flags.Changed("wait") {
		settings.MaxWaitSeconds = maxWait.Seconds()
	}
	if flags.Changed("ttl") {
		settings.TTL = ttl
	}
	if flags.Changed("timeout") {
		settings.HTTPTimeoutSeconds = int(httpTimeout.Seconds())
	}
	if flags.Changed("raise") {
		settings.RaiseOnRemoteError = raiseOnRemoteError
	}
	if err := registry.Override(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	effective := registry.Settings()

	scanner := discovery.NewScanner()
	scanner.TTL = effective.TTL
	scanner.UserAgent = version.UserAgent()
	scanner.FriendlyName = effective.FriendlyName
	scanner.ControlPointUUID = effective.UUID

	client := transport.NewClient()
	client.UserAgent = version.UserAgent()
	client.SetTimeout(effective.HTTPTimeout())

	cfg := registry.ControlPointConfig()

	logging.Debug("Session configured",
		zap.String("config", registry.Path()),
		zap.String("search_target", effective.SearchTarget),
		zap.Duration("max_wait", effective.MaxWait()),
		zap.Int("ttl", effective.TTL),
		zap.Bool("raise_on_remote_error", cfg.RaiseOnRemoteError),
	)

	return &session{
		registry: registry,
		settings: effective,
		client:   client,
		cp:       controlpoint.New(cfg, scanner, client),
		printer:  ui.NewPrinter(os.Stdout),
	}, nil
}

// searchParams are the header lines describing a search round
func (s *session) searchParams() []ui.Param {
	return []ui.Param{
		{Key: "Target", Value: s.settings.SearchTarget},
		{Key: "Window", Value: s.settings.MaxWait().String()},
		{Key: "TTL", Value: fmt.Sprintf("%d", s.settings.TTL)},
	}
}

// discover runs one search round and records what was found
func (s *session) discover(ctx context.Context) ([]*controlpoint.Device, error) {
	devices, err := s.cp.FindDevices(ctx, s.settings.SearchTarget, s.settings.MaxWait(), s.settings.TTL)
	if err != nil {
		return nil, err
	}
	s.remember(devices)
	return devices, nil
}

// bind runs a search round and binds every service found
func (s *session) bind(ctx context.Context) ([]*controlpoint.Service, error) {
	if _, err := s.discover(ctx); err != nil {
		return nil, err
	}
	return s.cp.FindServices(ctx)
}

// remember writes the devices that answered into the registry
func (s *session) remember(devices []*controlpoint.Device) {
	recorded := 0
	for _, dev := range devices {
		if dev.Description == nil {
			continue
		}
		s.registry.RecordDevice(dev.UDN(), dev.Description.Device.FriendlyName,
			dev.Description.Device.DeviceType, dev.Location)
		recorded++
	}
	if recorded == 0 {
		return
	}

	if err := s.registry.Save(); err != nil {
		logging.Warn("Failed to save device registry", zap.Error(err))
	}
}

// service looks up a bound service by key
func (s *session) service(key string) (*controlpoint.Service, error) {
	svc, err := s.cp.Service(key)
	if err != nil {
		return nil, err
	}
	if svc.State() != controlpoint.StateBound {
		if err := svc.Err(); err != nil {
			return nil, fmt.Errorf("service %s is not usable: %w", key, err)
		}
		return nil, fmt.Errorf("service %s is %s", key, svc.State())
	}
	return svc, nil
}

// stepTimer formats the elapsed time since start for step notes
func stepTimer(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
