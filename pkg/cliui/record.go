package cliui

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/thoughtstream/pkg/reducer"
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	ValueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = DimStyle.Italic(true)
)

// fieldOrder puts the well-known record fields first; the rest follow
// alphabetically.
var fieldOrder = []string{"title", "distortions", "reframe"}

// OrderedFields returns the field names of rec in display order.
func OrderedFields(rec reducer.Record) []string {
	keys := make([]string, 0, len(rec.Fields))
	for _, k := range fieldOrder {
		if _, ok := rec.Fields[k]; ok {
			keys = append(keys, k)
		}
	}

	var rest []string
	for k := range rec.Fields {
		if !slices.Contains(fieldOrder, k) {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)

	return append(keys, rest...)
}

// FormatValue renders a field value on one line.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// RenderRecord renders a styled view of rec for a live terminal.
func RenderRecord(rec reducer.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", statusMark(rec.Status), TitleStyle.Render(FormatValue(rec.Fields["title"])))
	for _, k := range OrderedFields(rec) {
		if k == "title" {
			continue
		}
		fmt.Fprintf(&b, "  %s %s\n", KeyStyle.Render(k+":"), FormatValue(rec.Fields[k]))
	}

	switch {
	case rec.Status == reducer.StatusError:
		fmt.Fprintf(&b, "  %s\n", ErrorStyle.Render(rec.Error))
	case !rec.Status.Terminal():
		fmt.Fprintf(&b, "  %s\n", pendingStyle.Render("streaming..."))
	}

	return b.String()
}

// RenderRecordPlain renders rec as key: value lines without styling.
func RenderRecordPlain(rec reducer.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %s\nstatus: %s\n", rec.ID, rec.Status)
	for _, k := range OrderedFields(rec) {
		fmt.Fprintf(&b, "%s: %s\n", k, FormatValue(rec.Fields[k]))
	}
	if rec.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", rec.Error)
	}
	return b.String()
}

// RecordMarkdown renders a finished record as markdown for RenderMarkdown.
func RecordMarkdown(rec reducer.Record) string {
	var b strings.Builder

	title := FormatValue(rec.Fields["title"])
	if title == "" {
		title = "Thought record"
	}
	fmt.Fprintf(&b, "## %s\n\n", title)

	if d, ok := rec.Fields["distortions"].([]any); ok && len(d) > 0 {
		b.WriteString("**Distortions**\n\n")
		for _, item := range d {
			fmt.Fprintf(&b, "- %s\n", FormatValue(item))
		}
		b.WriteString("\n")
	}

	if r := FormatValue(rec.Fields["reframe"]); r != "" {
		fmt.Fprintf(&b, "> %s\n\n", r)
	}

	for _, k := range OrderedFields(rec) {
		if slices.Contains(fieldOrder, k) {
			continue
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", k, FormatValue(rec.Fields[k]))
	}

	if rec.Error != "" {
		fmt.Fprintf(&b, "_%s_\n", rec.Error)
	}

	return b.String()
}

func statusMark(s reducer.Status) string {
	switch s {
	case reducer.StatusComplete:
		return SuccessMark
	case reducer.StatusError:
		return FailMark
	default:
		return frameStyle.Render(string(frames[0]))
	}
}
