package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/adtkit/internal/presentation/tui"
	"github.com/aretw0/adtkit/pkg/domain"
	"github.com/fatih/color"
)

// Printer writes command outcomes as plain lines, rich terminal output or JSON.
type Printer struct {
	Out   io.Writer
	JSON  bool
	Rich  bool
	Trace bool

	render func(string) (string, error)
}

// NewPrinter returns a printer for out. Rich output uses glamour and lipgloss.
func NewPrinter(out io.Writer, jsonMode, rich, trace bool) *Printer {
	p := &Printer{Out: out, JSON: jsonMode, Rich: rich && !jsonMode, Trace: trace}
	if p.Rich {
		p.render = tui.NewRenderer()
	}
	return p
}

var (
	okMark   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	warnMark = color.New(color.FgYellow).SprintFunc()
)

// Result prints a successful outcome.
func (p *Printer) Result(res *domain.Result) {
	if res == nil {
		return
	}
	if p.JSON {
		p.json(res.Payload())
		return
	}
	if p.Rich {
		if out, err := p.render(tui.ResultMarkdown(res)); err == nil {
			fmt.Fprint(p.Out, out)
		} else {
			fmt.Fprintln(p.Out, res.Message)
		}
	} else {
		fmt.Fprintf(p.Out, "%s %s\n", okMark("✓"), res.Message)
		for _, w := range res.Warnings {
			fmt.Fprintf(p.Out, "  %s %s\n", warnMark("!"), w)
		}
	}
	if p.Trace && len(res.Trace) > 0 {
		fmt.Fprintln(p.Out, tui.RenderTrace(res.Trace))
	}
}

// Lock prints an acquired lock handle.
func (p *Printer) Lock(h *domain.LockHandle) {
	if p.JSON {
		p.json(h)
		return
	}
	fmt.Fprintf(p.Out, "%s %s locked (handle %s)\n", okMark("✓"), h.Ref, h.Token)
}

// Error prints a classified failure as a single line.
func (p *Printer) Error(err error) {
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if p.JSON {
		p.json(map[string]any{
			"success":    false,
			"error_kind": domain.KindOf(err),
			"message":    msg,
		})
		return
	}
	fmt.Fprintf(p.Out, "%s %s\n", failMark("✗"), msg)
}

// Value prints an arbitrary value as indented JSON.
func (p *Printer) Value(v any) {
	p.json(v)
}

func (p *Printer) json(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(p.Out, "Error marshaling output: %v\n", err)
		return
	}
	fmt.Fprintln(p.Out, string(data))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
