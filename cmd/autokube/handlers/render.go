package handlers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/autokube/provisioner/internal/provisioning"
	"github.com/autokube/provisioner/internal/provisioning/report"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorDim    = lipgloss.Color("#6b7280")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	failedStyle  = lipgloss.NewStyle().Foreground(colorRed)
	warningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
	skipMark  = "[--]"
)

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printReport writes rep as JSON or as a summary, styled on terminals.
func printReport(w io.Writer, rep *provisioning.Report, jsonOutput bool) error {
	if jsonOutput {
		data, err := report.Encode(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	_, err := io.WriteString(w, renderReport(rep, isTTY()))
	return err
}

// renderReport summarizes a run: status, stages, per-node probes,
// execution and warnings.
func renderReport(rep *provisioning.Report, styled bool) string {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n",
		paint(titleStyle, "Cluster "+rep.ClusterID),
		statusLabel(rep.Status, paint),
		paint(dimStyle, fmt.Sprintf("run %s, %s", rep.RunID, rep.Duration.Round(time.Second))))

	if len(rep.Stages) > 0 {
		b.WriteString("\nStages\n")
		for _, s := range rep.Stages {
			mark := paint(okStyle, checkMark)
			if !s.Success {
				mark = paint(failedStyle, crossMark)
			}
			fmt.Fprintf(&b, "  %s %-12s %s\n", mark, s.Name, paint(dimStyle, s.Duration.Round(time.Millisecond).String()))
		}
	}

	if len(rep.Probes) > 0 {
		b.WriteString("\nNodes\n")
		for _, p := range rep.Probes {
			role := "worker"
			if p.ControlPlane {
				role = "control-plane"
			}
			switch {
			case p.Success:
				fmt.Fprintf(&b, "  %s %-12s %-15s %s\n", paint(okStyle, checkMark), p.Node, p.Address, role)
			case p.ControlPlane:
				fmt.Fprintf(&b, "  %s %-12s %-15s %s: %s\n", paint(failedStyle, crossMark), p.Node, p.Address, role, p.Error)
			default:
				fmt.Fprintf(&b, "  %s %-12s %-15s %s excluded: %s\n", paint(warningStyle, warnMark), p.Node, p.Address, role, p.Error)
			}
		}
	}

	if ex := rep.Execution; ex != nil {
		fmt.Fprintf(&b, "\nInstall  %s", ex.Method)
		if ex.Node != "" {
			fmt.Fprintf(&b, " on %s", ex.Node)
		}
		if ex.Release != "" {
			fmt.Fprintf(&b, " (release %s %s)", ex.Release, ex.ChartVersion)
		}
		if v := ex.Nodes; v != nil {
			fmt.Fprintf(&b, ", %d/%d nodes ready", len(v.Ready), len(v.Ready)+len(v.NotReady)+len(v.Missing))
		}
		b.WriteString("\n")
	}

	if f := rep.Failure; f != nil {
		b.WriteString("\n")
		b.WriteString(paint(failedStyle, "Failed"))
		fmt.Fprintf(&b, " in %s", f.Stage)
		if f.Node != "" {
			fmt.Fprintf(&b, " on %s", f.Node)
		}
		if f.Kind != "" {
			fmt.Fprintf(&b, " (%s)", f.Kind)
		}
		fmt.Fprintf(&b, ": %s\n", f.Message)
		if f.Output != "" {
			b.WriteString(paint(dimStyle, indent(f.Output)))
			b.WriteString("\n")
		}
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "  %s %s\n", paint(warningStyle, warnMark), w)
		}
	}

	if d := rep.Delivery; d != nil {
		switch {
		case d.Sent:
			fmt.Fprintf(&b, "\nControl plane marked %s\n", d.Status)
		case d.Error != "":
			fmt.Fprintf(&b, "\n%s %s\n", paint(warningStyle, "Status report failed:"), d.Error)
		default:
			fmt.Fprintf(&b, "\nNothing reported: %s\n", d.Reason)
		}
	}
	return b.String()
}

func statusLabel(s report.Status, paint func(lipgloss.Style, string) string) string {
	switch s {
	case report.StatusSucceeded:
		return paint(okStyle, checkMark+" succeeded")
	case report.StatusFailed:
		return paint(failedStyle, crossMark+" failed")
	default:
		return paint(dimStyle, skipMark+" "+string(s))
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}
