// Package cliui holds the terminal styling shared by thoughtstream commands:
// progress steps, record views and markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	frameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var frames = []rune("⣾⣽⣻⢿⡿⣟⣯⣷")

// frameInterval is how often the spinner advances.
const frameInterval = 80 * time.Millisecond

// markdownWidth wraps rendered markdown.
const markdownWidth = 80

// Step runs fn and reports it on w as one line ending in a mark and the
// elapsed time. On a terminal a spinner animates the line while fn runs.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := func() {}
	if IsTerminal(w) {
		stop = spin(w, msg)
	}

	start := time.Now()
	err := fn()
	stop()

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg,
		StepStyle.Render("("+FormatDuration(time.Since(start))+")"))
	return err
}

// spin draws frames until the returned func is called. The func returns
// once the last frame is written.
func spin(w io.Writer, msg string) func() {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		t := time.NewTicker(frameInterval)
		defer t.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(w, "\r  %s %s", frameStyle.Render(string(frames[i%len(frames)])), msg)
			select {
			case <-done:
				return
			case <-t.C:
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration prints sub-second durations in milliseconds ("12ms") and
// longer ones in tenths of a second ("3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders content with glamour for the terminal. On failure
// the unrendered content is returned with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(markdownWidth))
	if err != nil {
		return content, err
	}
	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
