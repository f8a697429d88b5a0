package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/upnpcp/internal/transport"
)

// Printer provides methods for printing UI components to a writer.
// This is the primary way commands should output styled content.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
	p.Newline()
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box. Troubleshooting tips come from the
// error classification.
func (p *Printer) PrintError(title string, err error) {
	result := NewFailureResult(title, err, transport.GetTroubleshootingHint(err))
	p.Println(result.SetWidth(p.width).Render())
}

type opDoneMsg struct{ err error }

// spinnerModel shows a spinner while a blocking operation runs
type spinnerModel struct {
	spinner     spinner.Model
	label       string
	cancel      context.CancelFunc
	err         error
	done        bool
	interrupted bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case opDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.interrupted = true
			m.cancel()
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	label := m.label
	if m.interrupted {
		label += " (cancelling)"
	}
	return "  " + m.spinner.View() + " " + ProgressLabelStyle.UnsetPaddingLeft().Render(label) + "\n"
}

// RunWithSpinner runs op while a spinner is shown on out. Ctrl+C cancels the
// context passed to op. When out is not a terminal op runs without a spinner.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, op func(context.Context) error) error {
	if !IsTerminal(out) {
		return op(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	model := spinnerModel{
		spinner: s,
		label:   label,
		cancel:  cancel,
	}

	p := tea.NewProgram(model, tea.WithOutput(out))

	go func() {
		p.Send(opDoneMsg{err: op(ctx)})
	}()

	// op honours ctx, so an interrupt still ends with opDoneMsg
	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(spinnerModel); ok {
		return m.err
	}
	return nil
}
