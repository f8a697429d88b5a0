// Package ui provides terminal UI components for the upnp-cp CLI.
//
// This package uses Bubble Tea and Lipgloss to render polished terminal output
// for control point commands. Components follow a "run once and exit" pattern:
// they render output but don't require user interaction.
//
// # Architecture
//
// The UI package provides these component types:
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Step list showing real-time status of a multi-step command
//   - Result: Success/failure/warning boxes with styled details
//   - Listings: RenderDevices, RenderServices, RenderActions, RenderValues
//
// Multi-step commands are orchestrated by the Runner, which manages the
// header → steps → result flow. Single blocking operations (an SSDP search
// window) use RunWithSpinner.
//
// Example:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:      "Service Binding",
//	    Command:    "upnp-cp services",
//	    Params:     []ui.Param{{Key: "Target", Value: "ssdp:all"}},
//	    TotalSteps: 2,
//	    StepNames:  []string{"Searching", "Binding services"},
//	})
//
//	err := runner.Run(ctx, func(ctx context.Context, onStep ui.StepCallback) ([]ui.Param, error) {
//	    onStep(1, "", ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, "", ui.StepComplete, "3 devices")
//	    return []ui.Param{{Key: "Devices", Value: "3"}}, nil
//	})
//
// # Logging Integration
//
// This package expects logging to be controlled via the UPNPCP_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
