// Upnp-cp is a UPnP control point for the command line.
//
// It discovers devices with SSDP, binds their services from the published
// descriptions and invokes actions over SOAP:
//
//   - search: list the devices answering an M-SEARCH
//   - services: bind every service of every device found
//   - actions: show the actions of one service with their argument types
//   - invoke: call an action and print its coerced out-arguments
//   - shell: an interactive session that keeps the bound services
//
// Settings are read from $XDG_CONFIG_HOME/upnp-cp/config.yaml and can be
// overridden per invocation with flags.
//
// See 'upnp-cp --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/muurk/upnpcp/internal/logging"
	"github.com/muurk/upnpcp/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "upnp-cp",
	Short: "UPnP Control Point",
	Long: `A command line UPnP control point.

Discovers devices on the local network with SSDP, reads their device and
service descriptions, and invokes service actions over SOAP.

Out-arguments are converted to native values using the data types declared
in each service's state table.`,
	Version: version.Get().Version,
	Example: `  # Find everything on the network
  upnp-cp search

  # Only media renderers, with a longer window
  upnp-cp search --st urn:schemas-upnp-org:device:MediaRenderer:1 --wait 5s

  # Show what a service can do
  upnp-cp actions RenderingControl

  # Set the volume through the first RenderingControl service found
  upnp-cp invoke RenderingControl SetVolume 0 Master 30`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
		switch outputFormat {
		case formatDetailed, formatJSON:
			return nil
		default:
			return fmt.Errorf("unknown output format %q (want %s or %s)", outputFormat, formatDetailed, formatJSON)
		}
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("upnp-cp %s\n", version.Full())
	},
}
