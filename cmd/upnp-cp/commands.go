package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/upnpcp/internal/config"
	"github.com/muurk/upnpcp/internal/controlpoint"
	"github.com/muurk/upnpcp/internal/description"
	"github.com/muurk/upnpcp/internal/discovery"
	"github.com/muurk/upnpcp/internal/ui"
)

const (
	formatDetailed = "detailed"
	formatJSON     = "json"
)

// Command flags
var (
	configPath         string
	logLevel           string
	outputFormat       string
	searchTarget       string
	maxWait            time.Duration
	ttl                int
	httpTimeout        time.Duration
	raiseOnRemoteError bool
)

func init() {
	// Common flags for all commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default $XDG_CONFIG_HOME/upnp-cp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatDetailed, "Output format (detailed, json)")
	rootCmd.PersistentFlags().StringVar(&searchTarget, "st", discovery.DefaultSearchTarget, "SSDP search target")
	rootCmd.PersistentFlags().DurationVar(&maxWait, "wait", discovery.DefaultMaxWait, "SSDP response window")
	rootCmd.PersistentFlags().IntVar(&ttl, "ttl", discovery.DefaultTTL, "Multicast TTL")
	rootCmd.PersistentFlags().DurationVar(&httpTimeout, "timeout", config.DefaultHTTPTimeoutSeconds*time.Second, "HTTP timeout for description fetches and action calls")
	rootCmd.PersistentFlags().BoolVar(&raiseOnRemoteError, "raise", true, "Fail on SOAP faults instead of returning the fault fields")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(knownCmd)
	rootCmd.AddCommand(nickCmd)
	rootCmd.AddCommand(shellCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// searchCmd discovers devices on the network
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for UPnP devices on the network",
	Long: `Multicast one SSDP M-SEARCH and list every device that answers within
the response window. The description of each distinct LOCATION is fetched
and the devices are remembered in the configuration file.`,
	Example: `  # Everything on the network
  upnp-cp search

  # Only media servers
  upnp-cp search --st urn:schemas-upnp-org:device:MediaServer:1

  # Machine-readable
  upnp-cp search --format json`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

type deviceJSON struct {
	UDN          string `json:"udn,omitempty"`
	FriendlyName string `json:"friendly_name,omitempty"`
	DeviceType   string `json:"device_type,omitempty"`
	Location     string `json:"location"`
	Server       string `json:"server,omitempty"`
	USN          string `json:"usn,omitempty"`
	Error        string `json:"error,omitempty"`
}

func toDeviceJSON(dev *controlpoint.Device) deviceJSON {
	out := deviceJSON{
		UDN:      dev.UDN(),
		Location: dev.Location,
	}
	if dev.Record != nil {
		out.Server = dev.Record.Server
		out.USN = dev.Record.USN
	}
	if dev.Description != nil {
		out.FriendlyName = dev.Description.Device.FriendlyName
		out.DeviceType = dev.Description.Device.DeviceType
	}
	if dev.Err != nil {
		out.Error = dev.Err.Error()
	}
	return out
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if outputFormat == formatJSON {
		devices, err := s.discover(ctx)
		if err != nil {
			return err
		}
		out := make([]deviceJSON, 0, len(devices))
		for _, dev := range devices {
			out = append(out, toDeviceJSON(dev))
		}
		return printJSON(out)
	}

	s.printer.PrintHeader("SSDP Search", "upnp-cp search", s.searchParams()...)

	var devices []*controlpoint.Device
	start := time.Now()
	err = ui.RunWithSpinner(ctx, os.Stdout, "Searching...", func(ctx context.Context) error {
		var err error
		devices, err = s.discover(ctx)
		return err
	})
	if err != nil {
		s.printer.PrintError("Search failed", err)
		return err
	}

	if len(devices) == 0 {
		s.printer.PrintWarning("No devices answered",
			ui.Param{Key: "Target", Value: s.settings.SearchTarget},
			ui.Param{Key: "Hint", Value: "increase --wait or check that UDP 1900 is not blocked"},
		)
		return nil
	}

	s.printer.Println(ui.RenderDevices(devices, s.registry.DisplayName))
	s.printer.Newline()

	failed := 0
	for _, dev := range devices {
		if dev.Err != nil {
			failed++
		}
	}

	s.printer.PrintSuccess(fmt.Sprintf("Found %d device(s)", len(devices)),
		ui.Param{Key: "Unreachable", Value: strconv.Itoa(failed)},
		ui.Param{Key: "Duration", Value: stepTimer(start)},
	)
	return nil
}

// servicesCmd binds every service of every device found
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List and bind the services of every device found",
	Long: `Search, then fetch the service description of every service of every
device found, embedded devices included. A service whose description cannot
be fetched is reported as failed without affecting the others.`,
	Args: cobra.NoArgs,
	RunE: runServices,
}

type serviceJSON struct {
	ServiceType string   `json:"service_type"`
	ServiceID   string   `json:"service_id"`
	DeviceUDN   string   `json:"device_udn,omitempty"`
	ControlURL  string   `json:"control_url,omitempty"`
	State       string   `json:"state"`
	Actions     []string `json:"actions,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func runServices(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if outputFormat == formatJSON {
		services, err := s.bind(ctx)
		if err != nil {
			return err
		}
		out := make([]serviceJSON, 0, len(services))
		for _, svc := range services {
			entry := serviceJSON{
				ServiceType: svc.ServiceType,
				ServiceID:   svc.ServiceID,
				DeviceUDN:   svc.DeviceUDN,
				ControlURL:  svc.ControlURL,
				State:       svc.State().String(),
				Actions:     svc.ActionNames(),
			}
			if svc.Err() != nil {
				entry.Error = svc.Err().Error()
			}
			out = append(out, entry)
		}
		return printJSON(out)
	}

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:      "Service Binding",
		Command:    "upnp-cp services",
		Params:     s.searchParams(),
		TotalSteps: 2,
		StepNames:  []string{"Discovering devices", "Fetching service descriptions"},
	})

	var services []*controlpoint.Service
	err = runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
		onStep(1, "", ui.StepRunning, "")
		devices, err := s.discover(ctx)
		if err != nil {
			onStep(1, "", ui.StepFailed, "")
			return nil, err
		}
		onStep(1, "", ui.StepComplete, fmt.Sprintf("%d devices", len(devices)))

		onStep(2, "", ui.StepRunning, "")
		services, err = s.cp.FindServices(ctx)
		if err != nil {
			onStep(2, "", ui.StepFailed, "")
			return nil, err
		}
		failures := s.cp.Failures()
		onStep(2, "", ui.StepComplete, fmt.Sprintf("%d services, %d failures", len(services), len(failures)))

		return []ui.Param{
			{Key: "Devices", Value: strconv.Itoa(len(devices))},
			{Key: "Services", Value: strconv.Itoa(len(services))},
			{Key: "Failures", Value: strconv.Itoa(len(failures))},
		}, nil
	})
	if err != nil {
		return err
	}

	s.printer.Newline()
	s.printer.Println(ui.RenderServices(services))
	return nil
}

// actionsCmd shows the actions of one service
var actionsCmd = &cobra.Command{
	Use:   "actions <service>",
	Short: "Show the actions of a service",
	Long: `Search, bind, and print the actions of the first service matching
<service>. A service is matched by service ID, service type, short type
("RenderingControl:1") or the last component of its ID ("RenderingControl").`,
	Example: `  upnp-cp actions ContentDirectory
  upnp-cp actions urn:upnp-org:serviceId:AVTransport`,
	Args: cobra.ExactArgs(1),
	RunE: runActions,
}

func runActions(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	svc, err := bindService(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}

	if outputFormat == formatJSON {
		return printJSON(struct {
			ServiceType string               `json:"service_type"`
			ServiceID   string               `json:"service_id"`
			SpecVersion string               `json:"spec_version,omitempty"`
			Actions     []description.Action `json:"actions"`
		}{svc.ServiceType, svc.ServiceID, svc.SpecVersion().String(), svc.Actions()})
	}

	s.printer.PrintHeader("Service Actions", "upnp-cp actions "+args[0],
		ui.Param{Key: "Service", Value: svc.ServiceType},
		ui.Param{Key: "ID", Value: svc.ServiceID},
		ui.Param{Key: "Control", Value: svc.ControlURL},
	)
	s.printer.Println(ui.RenderActions(svc))
	return nil
}

// bindService runs search and bind, then looks up one service. Output is
// decorated with a spinner unless JSON was asked for.
func bindService(ctx context.Context, s *session, key string) (*controlpoint.Service, error) {
	bind := func(ctx context.Context) error {
		_, err := s.bind(ctx)
		return err
	}

	var err error
	if outputFormat == formatJSON {
		err = bind(ctx)
	} else {
		err = ui.RunWithSpinner(ctx, os.Stdout, "Discovering and binding services...", bind)
	}
	if err != nil {
		return nil, err
	}

	svc, err := s.service(key)
	if err != nil {
		if errors.Is(err, controlpoint.ErrServiceNotFound) && outputFormat != formatJSON {
			s.printer.PrintError("Service not found", err)
		}
		return nil, err
	}
	return svc, nil
}

// invokeCmd calls one action
var invokeCmd = &cobra.Command{
	Use:   "invoke <service> <action> [values...]",
	Short: "Invoke an action on a service",
	Long: `Search, bind, and invoke <action> on the first service matching <service>.

Values are positional and bound to the action's in-arguments in the order
the service description declares them. Out-arguments are converted to
native values using the declared data types.

With --raise=false a SOAP fault is printed as a result map carrying
faultcode, faultstring, errorCode and errorDescription instead of failing.`,
	Example: `  upnp-cp invoke RenderingControl GetVolume 0 Master
  upnp-cp invoke AVTransport Play 0 1
  upnp-cp invoke ContentDirectory GetSystemUpdateID --format json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInvoke,
}

func runInvoke(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := bindService(ctx, s, args[0])
	if err != nil {
		return err
	}

	return invokeAndPrint(ctx, s, svc, args[1], args[2:])
}

// invokeAndPrint calls an action with string values and prints the result
func invokeAndPrint(ctx context.Context, s *session, svc *controlpoint.Service, action string, values []string) error {
	in := make([]any, len(values))
	for i, v := range values {
		in[i] = v
	}

	start := time.Now()
	result, err := svc.Invoke(ctx, action, in...)

	if outputFormat == formatJSON {
		if err != nil {
			return err
		}
		return printJSON(result)
	}

	if err != nil {
		s.printer.PrintError(fmt.Sprintf("%s failed", action), err)
		return err
	}

	s.printer.Println(ui.RenderValues(result))
	s.printer.Newline()

	details := []ui.Param{
		{Key: "Service", Value: description.ShortServiceType(svc.ServiceType)},
		{Key: "Duration", Value: stepTimer(start)},
	}
	if _, isFault := result["faultcode"]; isFault {
		s.printer.PrintWarning(fmt.Sprintf("%s returned a fault", action), details...)
		return nil
	}
	s.printer.PrintSuccess(fmt.Sprintf("%s complete", action), details...)
	return nil
}

// knownCmd lists the devices remembered from earlier searches
var knownCmd = &cobra.Command{
	Use:   "known",
	Short: "List devices remembered from earlier searches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		udns := make([]string, 0, len(registry.Devices))
		for udn := range registry.Devices {
			udns = append(udns, udn)
		}
		sort.Strings(udns)

		if outputFormat == formatJSON {
			return printJSON(registry.Devices)
		}

		printer := ui.NewPrinter(os.Stdout)
		if len(udns) == 0 {
			printer.Println(ui.MutedStyle.Render("  No devices remembered yet. Run 'upnp-cp search'."))
			return nil
		}
		for _, udn := range udns {
			dev := registry.Devices[udn]
			printer.Println("  " + ui.NameStyle.Render(registry.DisplayName(udn, dev.FriendlyName)))
			printer.Println("    " + ui.MutedStyle.Render(udn))
			printer.Println("    " + dev.LastLocation + "  " +
				ui.MutedStyle.Render("last seen "+dev.LastSeen.Format(time.RFC3339)))
		}
		return nil
	},
}

// nickCmd sets a device nickname
var nickCmd = &cobra.Command{
	Use:     "nick <udn> <nickname>",
	Short:   "Give a device a nickname shown in listings",
	Example: `  upnp-cp nick uuid:4d696e69-444c-164e-9d41-b827eb96c6c2 "Living room TV"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		registry.SetDeviceNickname(args[0], args[1])
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}
		fmt.Printf("%s is now %q\n", args[0], args[1])
		return nil
	},
}
