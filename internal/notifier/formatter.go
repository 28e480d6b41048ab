package notifier

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/glamour"

	"CurrencyLens/internal/model"
)

// FormatValue prints a metric value with its unit.
func FormatValue(m model.MetricInfo, v float64) string {
	if m.Unit == model.UnitPercent {
		return fmt.Sprintf("%.2f%%", v)
	}
	return fmt.Sprintf("%.4f", v)
}

func statusLine(s model.Status) string {
	switch s {
	case model.StatusNoDataAvailable:
		return "No data available: no instruments were found."
	case model.StatusNoValidResults:
		return "No valid results: every instrument was skipped."
	}
	return ""
}

// FormatMarkdown renders a report as a markdown document: a table of values
// with the highlighted entry in bold, followed by the skipped instruments.
func FormatMarkdown(r *model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Metric.Label)
	fmt.Fprintf(&b, "Window: `%s`\n\n", r.Window)

	if r.Empty() {
		fmt.Fprintf(&b, "> %s\n", statusLine(r.Status))
	} else {
		var tied []string
		b.WriteString("| Currency | Value |\n|---|---:|\n")
		for _, e := range r.Entries {
			v := FormatValue(r.Metric, e.Value)
			if r.IsHighlighted(e) {
				tied = append(tied, e.Instrument)
				fmt.Fprintf(&b, "| **%s** | **%s** |\n", e.Instrument, v)
				continue
			}
			fmt.Fprintf(&b, "| %s | %s |\n", e.Instrument, v)
		}
		top, _ := r.Extremal()
		fmt.Fprintf(&b, "\nHighlighted (%s): **%s** at %s\n",
			strings.ReplaceAll(string(r.Metric.Highlight), "_", " "), strings.Join(tied, ", "), FormatValue(r.Metric, top.Value))
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\n## Skipped\n\n")
		for _, s := range r.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", s.Instrument, s.Reason)
		}
	}
	return b.String()
}

// RenderTerminal renders markdown for a terminal. style is a glamour
// standard style name such as "dark", "light" or "notty".
func RenderTerminal(markdown, style string, width int) (string, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// FormatTelegram formats a report as an HTML Telegram message.
func FormatTelegram(r *model.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n", html.EscapeString(r.Metric.Label))
	fmt.Fprintf(&b, "%s\n\n", r.Window)

	if r.Empty() {
		fmt.Fprintf(&b, "⚠️ %s\n", statusLine(r.Status))
	} else {
		for _, e := range r.Entries {
			marker := "  "
			if r.IsHighlighted(e) {
				marker = "🔴"
			}
			fmt.Fprintf(&b, "%s %s: %s\n", marker, html.EscapeString(e.Instrument), FormatValue(r.Metric, e.Value))
		}
	}

	if len(r.Skipped) > 0 {
		names := make([]string, 0, len(r.Skipped))
		for _, s := range r.Skipped {
			names = append(names, fmt.Sprintf("%s (%s)", html.EscapeString(s.Instrument), s.Reason))
		}
		fmt.Fprintf(&b, "\n<i>Skipped: %s</i>\n", strings.Join(names, ", "))
	}
	return b.String()
}

// FormatAlignment summarises an alignment for the terminal.
func FormatAlignment(a *model.Alignment, written []string) string {
	var b strings.Builder
	b.WriteString("# Alignment\n\n")
	if a.Status != model.StatusOK {
		fmt.Fprintf(&b, "> %s\n", statusLine(a.Status))
	} else {
		fmt.Fprintf(&b, "Reference: **%s**, window `%s` (%d days)\n\n", a.Reference, a.Window, a.Window.Days())
		b.WriteString("| Currency | Observations |\n|---|---:|\n")
		for _, s := range a.Series {
			fmt.Fprintf(&b, "| %s | %d |\n", s.Name, s.Len())
		}
	}
	if len(a.Dropped) > 0 {
		fmt.Fprintf(&b, "\nDropped (no overlap): %s\n", strings.Join(a.Dropped, ", "))
	}
	if len(a.Failures) > 0 {
		b.WriteString("\n## Load failures\n\n")
		for _, f := range a.Failures {
			fmt.Fprintf(&b, "- %s: %s\n", f.Instrument, f.Detail)
		}
	}
	if len(written) > 0 {
		b.WriteString("\n## Written\n\n")
		for _, p := range written {
			fmt.Fprintf(&b, "- `%s`\n", p)
		}
	}
	return b.String()
}
