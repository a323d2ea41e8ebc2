// Package display renders wizard output in the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jywlabs/scriptwiz/internal/llm"
)

// Spinner frames using braille characters
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Flusher is an optional interface for writers that support flushing.
type Flusher interface {
	Sync() error
}

// Display handles terminal output with a spinner and styled messages.
type Display struct {
	out io.Writer

	// Animate enables the spinner. Off for pipes and tests.
	Animate bool

	spinMu    sync.Mutex
	spinning  bool
	spinStop  chan struct{}
	spinDone  chan struct{}
	spinMsg   string
	spinStart time.Time

	totalTokens int
}

// New creates a display writing to out.
func New(out io.Writer, animate bool) *Display {
	return &Display{out: out, Animate: animate}
}

func (d *Display) flush() {
	if f, ok := d.out.(Flusher); ok {
		f.Sync()
	}
}

// StartSpinner shows msg with an elapsed timer until StopSpinner is called.
func (d *Display) StartSpinner(msg string) {
	d.spinMu.Lock()
	if d.spinning {
		d.spinMu.Unlock()
		return
	}
	if !d.Animate {
		d.spinMu.Unlock()
		fmt.Fprintf(d.out, "   %s\n", StyleMuted.Render(msg))
		return
	}
	d.spinning = true
	d.spinMsg = msg
	d.spinStart = time.Now()
	d.spinStop = make(chan struct{})
	d.spinDone = make(chan struct{})
	d.spinMu.Unlock()

	go func() {
		defer close(d.spinDone)
		frame := 0
		first := true
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-d.spinStop:
				if !first {
					// Move up, clear line, stay there for next output
					fmt.Fprintf(d.out, "\033[1A\r\033[K")
					d.flush()
				}
				return
			case <-ticker.C:
				elapsed := formatElapsed(time.Since(d.spinStart))
				line := fmt.Sprintf("   %s %s (%s)\n", StyleAccent.Render(spinnerFrames[frame]), d.spinMsg, elapsed)
				if first {
					fmt.Fprint(d.out, line)
					first = false
				} else {
					fmt.Fprint(d.out, "\033[1A\r\033[K"+line)
				}
				d.flush()
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// StopSpinner stops the spinner if it is running.
func (d *Display) StopSpinner() {
	d.spinMu.Lock()
	if !d.spinning {
		d.spinMu.Unlock()
		return
	}
	d.spinning = false
	close(d.spinStop)
	d.spinMu.Unlock()
	<-d.spinDone
}

// ShowCommandHeader prints the header line of a command.
func (d *Display) ShowCommandHeader(title, detail string) {
	line := fmt.Sprintf("%s %s", StyleCommandIcon.String(), StyleTitle.Render(title))
	if detail != "" {
		line += "  " + StyleMuted.Render(detail)
	}
	fmt.Fprintln(d.out, line)
	fmt.Fprintln(d.out)
}

// ShowArtifact prints generated content in a box.
func (d *Display) ShowArtifact(title, body string) {
	d.StopSpinner()
	if strings.TrimSpace(body) == "" {
		body = StyleMuted.Render("(empty)")
	}
	content := StyleBold.Render(title) + "\n\n" + strings.TrimRight(body, "\n")
	fmt.Fprintln(d.out, ArtifactBox().Render(content))
}

// ShowTable prints rows under headers.
func (d *Display) ShowTable(headers []string, rows [][]string) {
	d.StopSpinner()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleMuted).
		Headers(headers...).
		Rows(rows...).
		Width(GetTerminalWidth() - 2).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return StyleTitle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Fprintln(d.out, t.Render())
}

// ShowSuccess prints a success line.
func (d *Display) ShowSuccess(format string, args ...any) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleSuccess.Render("[ok]"), fmt.Sprintf(format, args...))
}

// ShowWarning prints a warning line.
func (d *Display) ShowWarning(format string, args ...any) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleWarning.Render("[!]"), fmt.Sprintf(format, args...))
}

// ShowNotice prints an informational notice such as a prompt fallback.
func (d *Display) ShowNotice(format string, args ...any) {
	d.StopSpinner()
	fmt.Fprintf(d.out, "%s %s\n", StyleInfo.Render("[i]"), fmt.Sprintf(format, args...))
}

// ShowError prints an error in a box.
func (d *Display) ShowError(msg string) {
	d.StopSpinner()
	fmt.Fprintln(d.out, ErrorBox().Render(StyleError.Render("[!!] Error")+"\n\n"+msg))
}

// ShowInfo prints unstyled text.
func (d *Display) ShowInfo(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

// ShowUsage prints token usage for one call and keeps a running total.
func (d *Display) ShowUsage(model string, usage llm.Usage, elapsed time.Duration) {
	d.StopSpinner()
	d.totalTokens += usage.TotalTokens
	fmt.Fprintf(d.out, "   %s\n", StyleMuted.Render(fmt.Sprintf(
		"%s | %s | prompt %s, completion %s, total %s tokens",
		model, elapsed.Round(100*time.Millisecond),
		formatTokens(usage.PromptTokens), formatTokens(usage.CompletionTokens), formatTokens(usage.TotalTokens))))
}

// TotalTokens returns the tokens shown so far.
func (d *Display) TotalTokens() int {
	return d.totalTokens
}

// formatElapsed formats duration with fixed width (always 6 chars like " 1.04s")
func formatElapsed(d time.Duration) string {
	secs := d.Seconds()
	if secs < 10 {
		return fmt.Sprintf("%5.2fs", secs)
	} else if secs < 100 {
		return fmt.Sprintf("%5.1fs", secs)
	}
	return fmt.Sprintf("%5.0fs", secs)
}

func formatTokens(n int) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// Truncate shortens s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
