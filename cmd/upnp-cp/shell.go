package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/muurk/upnpcp/internal/config"
	"github.com/muurk/upnpcp/internal/controlpoint"
	"github.com/muurk/upnpcp/internal/transport"
	"github.com/muurk/upnpcp/internal/ui"
)

// shellCmd starts an interactive session
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive control point session",
	Long: `Start an interactive session. Devices and services found by 'search'
and 'bind' stay available, so repeated invocations skip discovery.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

type shell struct {
	s   *session
	rl  *readline.Instance
	out io.Writer
}

func runShell(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	sh := &shell{s: s}

	historyFile := ""
	if dir, err := config.GetConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "upnp> ",
		HistoryFile:     historyFile,
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	sh.rl = rl
	sh.out = rl.Stdout()
	s.printer = ui.NewPrinter(sh.out)

	sh.run(cmd.Context())
	return nil
}

func (sh *shell) completer() *readline.PrefixCompleter {
	services := readline.PcItemDynamic(func(string) []string {
		var keys []string
		for _, svc := range sh.s.cp.Services() {
			keys = append(keys, svc.ServiceID)
		}
		return keys
	})

	return readline.NewPrefixCompleter(
		readline.PcItem("search"),
		readline.PcItem("bind"),
		readline.PcItem("devices"),
		readline.PcItem("services"),
		readline.PcItem("actions", services),
		readline.PcItem("invoke", services),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (sh *shell) run(ctx context.Context) {
	sh.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := sh.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}

		parts := splitArgs(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}

		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			sh.printHelp()
		case "search", "s":
			sh.cmdSearch(ctx, args)
		case "bind", "b":
			sh.cmdBind(ctx)
		case "devices", "d":
			_, _ = fmt.Fprintln(sh.out, ui.RenderDevices(sh.s.cp.Devices(), sh.s.registry.DisplayName))
		case "services", "ls":
			_, _ = fmt.Fprintln(sh.out, ui.RenderServices(sh.s.cp.Services()))
		case "actions", "a":
			sh.cmdActions(args)
		case "invoke", "i":
			sh.cmdInvoke(ctx, args)
		case "quit", "exit", "q":
			return
		default:
			_, _ = fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (sh *shell) printHelp() {
	_, _ = fmt.Fprintln(sh.out, `
UPnP Control Point Commands:
  search [st]                     - Run one SSDP search round
  bind                            - Fetch service descriptions of the devices found
  devices                         - List devices from the last search
  services                        - List services and their binding state
  actions <service>               - Show the actions of a service
  invoke <service> <action> [v..] - Invoke an action with positional values
  help                            - Show this help
  quit                            - Leave the shell

Values containing spaces can be quoted: invoke AVTransport SetAVTransportURI 0 "http://host/a b.mp3" ""`)
}

func (sh *shell) cmdSearch(ctx context.Context, args []string) {
	if len(args) > 0 {
		sh.s.settings.SearchTarget = args[0]
	}

	// A new round may find devices whose descriptions changed
	sh.s.client.InvalidateCache()

	_, _ = fmt.Fprintf(sh.out, "Searching for %s (%s)...\n", sh.s.settings.SearchTarget, sh.s.settings.MaxWait())

	devices, err := sh.s.discover(ctx)
	if err != nil {
		sh.printErr(err)
		return
	}
	_, _ = fmt.Fprintln(sh.out, ui.RenderDevices(devices, sh.s.registry.DisplayName))
}

func (sh *shell) cmdBind(ctx context.Context) {
	if len(sh.s.cp.Devices()) == 0 {
		_, _ = fmt.Fprintln(sh.out, "No devices. Run 'search' first.")
		return
	}

	services, err := sh.s.cp.FindServices(ctx)
	if err != nil {
		sh.printErr(err)
		return
	}
	_, _ = fmt.Fprintln(sh.out, ui.RenderServices(services))
}

func (sh *shell) lookup(key string) (*controlpoint.Service, bool) {
	svc, err := sh.s.service(key)
	if err != nil {
		sh.printErr(err)
		return nil, false
	}
	return svc, true
}

func (sh *shell) cmdActions(args []string) {
	if len(args) != 1 {
		_, _ = fmt.Fprintln(sh.out, "Usage: actions <service>")
		return
	}
	svc, ok := sh.lookup(args[0])
	if !ok {
		return
	}
	_, _ = fmt.Fprintln(sh.out, ui.RenderActions(svc))
}

func (sh *shell) cmdInvoke(ctx context.Context, args []string) {
	if len(args) < 2 {
		_, _ = fmt.Fprintln(sh.out, "Usage: invoke <service> <action> [values...]")
		return
	}
	svc, ok := sh.lookup(args[0])
	if !ok {
		return
	}
	// invokeAndPrint renders the failure box itself
	_ = invokeAndPrint(ctx, sh.s, svc, args[1], args[2:])
}

func (sh *shell) printErr(err error) {
	_, _ = fmt.Fprintln(sh.out, ui.ErrorMessageStyle.Render(ui.FailureMarker+" "+transport.GetShortErrorMessage(err)))
}

// splitArgs splits a line on whitespace, keeping double-quoted runs together.
// "" yields an empty argument.
func splitArgs(line string) []string {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if started {
		args = append(args, current.String())
	}
	return args
}
