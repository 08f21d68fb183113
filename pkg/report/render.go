package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chazu/dfmcheck/pkg/analysis"
	"github.com/chazu/dfmcheck/pkg/dfm"
)

var (
	colorError   = lipgloss.Color("#E74C3C")
	colorWarning = lipgloss.Color("#F4D03F")
	colorInfo    = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#2C4A54")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	summaryBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)

	severityStyles = map[dfm.Severity]lipgloss.Style{
		dfm.SeverityError:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
		dfm.SeverityWarning: lipgloss.NewStyle().Foreground(colorWarning),
		dfm.SeverityInfo:    lipgloss.NewStyle().Foreground(colorInfo),
	}
)

// Format selects an output rendering.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Write renders r to w in format f.
func Write(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatText, "":
		return WriteText(w, r)
	default:
		return fmt.Errorf("report: unknown format %q", f)
	}
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human-readable rendering of r.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("DFM report"), mutedStyle.Render(r.ID))
	fmt.Fprintf(&b, "process: %s\n", r.Process)
	if len(r.Parts) > 0 {
		parts := make([]string, len(r.Parts))
		for i, name := range r.Parts {
			parts[i] = analysis.SolidID(i) + " " + name
		}
		fmt.Fprintf(&b, "parts:   %s\n", strings.Join(parts, ", "))
	}
	b.WriteString("\n")

	s := r.Summary
	verdict := severityStyles[dfm.SeverityInfo].Render("manufacturable")
	if !s.Manufacturable {
		verdict = severityStyles[dfm.SeverityError].Render("not manufacturable")
	}
	b.WriteString(summaryBox.Render(fmt.Sprintf(
		"%d issues: %d errors, %d warnings, %d info\n%s",
		s.Total, s.Errors, s.Warnings, s.Info, verdict)))
	b.WriteString("\n\n")

	if len(r.Issues) > 0 {
		b.WriteString(sectionStyle.Render("Issues"))
		b.WriteString("\n")
		for _, i := range r.Issues {
			style := severityStyles[i.Severity]
			fmt.Fprintf(&b, "%s %s %s\n", style.Render(fmt.Sprintf("%-7s", i.Severity)), i.RuleID, i.RuleName)
			fmt.Fprintf(&b, "        %s\n", i.Description)
			if len(i.AffectedFeatures) > 0 {
				fmt.Fprintf(&b, "        %s\n", mutedStyle.Render("features: "+strings.Join(i.AffectedFeatures, ", ")))
			}
			fmt.Fprintf(&b, "        -> %s\n", i.Recommendation)
		}
		b.WriteString("\n")
	}

	writePhysical(&b, r.Physical)
	wt := r.Analysis.WallThickness
	fmt.Fprintf(&b, "  walls    min %.2f / avg %.2f / max %.2f %s\n", wt.Min, wt.Avg, wt.Max, r.Physical.Units.Length)

	if len(r.Skipped) > 0 || len(r.Unimplemented) > 0 {
		b.WriteString("\n")
		keys := make([]string, 0, len(r.Skipped))
		for k := range r.Skipped {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("skipped %d %s queries", r.Skipped[k], k)))
			b.WriteString("\n")
		}
		for _, id := range r.Unimplemented {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("rule %s not implemented", id)))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePhysical(b *strings.Builder, p analysis.Physical) {
	b.WriteString(sectionStyle.Render("Physical properties"))
	b.WriteString("\n")
	fmt.Fprintf(b, "  volume   %.2f %s\n", p.Volume, p.Units.Volume)
	fmt.Fprintf(b, "  mass     %.2f %s (%.2f %s)\n", p.Mass, p.Units.Mass, p.Density, p.Units.Density)
	fmt.Fprintf(b, "  cog      (%.2f, %.2f, %.2f) %s\n", p.CenterOfGravity.X, p.CenterOfGravity.Y, p.CenterOfGravity.Z, p.Units.Length)
	sz := p.BoundingBox.Size()
	fmt.Fprintf(b, "  extents  %.2f x %.2f x %.2f %s\n", sz.X, sz.Y, sz.Z, p.Units.Length)
}

// WritePhysical renders mass properties on their own. names labels the
// solids in order and may be shorter than p.Solids.
func WritePhysical(w io.Writer, p analysis.Physical, names []string, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case FormatText, "":
	default:
		return fmt.Errorf("report: unknown format %q", f)
	}

	var b strings.Builder
	writePhysical(&b, p)
	for i, s := range p.Solids {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintf(&b, "  %-4s %-12s %10.2f %s %10.2f %s\n", s.ID, name, s.Volume, p.Units.Volume, s.Mass, p.Units.Mass)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteRules prints the rule table for a process.
func WriteRules(w io.Writer, p dfm.Process) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(string(p)))
	for _, r := range dfm.Rules(p) {
		line := fmt.Sprintf("  %-8s %-26s %s", r.ID, r.Name, r.Scope)
		if !r.Implemented {
			line = mutedStyle.Render(line + " (not implemented)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
