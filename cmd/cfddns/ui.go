package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/Travis-Britz/cfddns"
)

// consoleUI prints one line per message, prefixed by a colored marker such as "[I]".
type consoleUI struct {
	out io.Writer

	info     *color.Color
	success  *color.Color
	failure  *color.Color
	question *color.Color
	prompt   *color.Color
	banner   *color.Color
}

func newConsoleUI(out io.Writer, nocolor bool) *consoleUI {
	ui := &consoleUI{
		out:      out,
		info:     color.New(color.FgYellow),
		success:  color.New(color.FgGreen),
		failure:  color.New(color.FgRed),
		question: color.New(color.FgBlue),
		prompt:   color.New(color.FgMagenta),
		banner:   color.New(color.FgHiBlack),
	}
	colored := !nocolor && isTerminal(out)
	for _, c := range []*color.Color{ui.info, ui.success, ui.failure, ui.question, ui.prompt, ui.banner} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return ui
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (ui *consoleUI) mark(c *color.Color, marker, msg string) {
	fmt.Fprint(ui.out, "[")
	c.Fprint(ui.out, marker)
	fmt.Fprintln(ui.out, "] "+msg)
}

func (ui *consoleUI) Info(msg string)     { ui.mark(ui.info, "I", msg) }
func (ui *consoleUI) Success(msg string)  { ui.mark(ui.success, "S", msg) }
func (ui *consoleUI) Error(msg string)    { ui.mark(ui.failure, "E", msg) }
func (ui *consoleUI) Question(msg string) { ui.mark(ui.question, "Q", msg) }

// Records renders the records as a borderless table with Name, Type and ID columns.
func (ui *consoleUI) Records(records []cfddns.DNSRecord) {
	table := tablewriter.NewWriter(ui.out)
	table.SetHeader([]string{"Name", "Type", "ID"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(true)
	table.SetColumnSeparator(" ")
	table.SetCenterSeparator(" ")
	table.SetRowSeparator("-")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range records {
		table.Append([]string{r.Name, r.Type, r.ID})
	}
	table.Render()
	fmt.Fprintln(ui.out)
}

// Prompt prints the input prompt, e.g. "alice> ".
func (ui *consoleUI) Prompt(name string) {
	ui.prompt.Fprint(ui.out, name+"> ")
}

func (ui *consoleUI) Banner() {
	ui.banner.Fprintln(ui.out, "Cloudflare DNS updater v."+cfddns.Version)
	ui.banner.Fprintln(ui.out, "--------------------------------------------------------------")
}

// Clear wipes the terminal and moves the cursor home.
func (ui *consoleUI) Clear() {
	if isTerminal(ui.out) {
		fmt.Fprint(ui.out, "\033[H\033[2J")
	}
	ui.Banner()
}
