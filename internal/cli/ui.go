package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/edgeprint/pkg/layout"
	"github.com/matzehuels/edgeprint/pkg/pipeline"
)

// Palette. Numbers are ANSI 256 colours.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCommand     = lipgloss.NewStyle().Foreground(colorBlue)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

func status(icon string, color lipgloss.Color, msg string) {
	fmt.Println(lipgloss.NewStyle().Foreground(color).Render(icon) + " " + msg)
}

func printSuccess(format string, args ...any) {
	status(iconSuccess, colorGreen, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	status(iconError, colorRed, fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	status(iconWarning, colorYellow, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	status(iconInfo, colorGray, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written artifact.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

func points(s layout.Size) string {
	return fmt.Sprintf("%.2f x %.2f pt", s.Width, s.Height)
}

// printLayout prints the derived dimensions of a book.
func printLayout(r layout.Result) {
	printKeyValue("Leaves", StyleNumber.Render(fmt.Sprintf("%d", r.LeafCount)))
	printKeyValue("Page", points(r.Page()))
	printKeyValue("Trim", fmt.Sprintf("%.2f x %.2f pt", r.TrimWidthPt, r.TrimHeightPt))
	printKeyValue("Offset", fmt.Sprintf("%.2f pt", r.BleedOffset))
	printKeyValue("Side strip", points(r.SideStrip()))
	printKeyValue("Head strip", points(r.HeadStrip()))
	printKeyValue("Thickness", fmt.Sprintf("%.3f in", r.EdgeThicknessInches))
	printKeyValue("Template", fmt.Sprintf("%d x %d px", r.Template.WidthPx, r.Template.HeightPx))
}

func joinDetail(parts ...string) {
	printDetail("%s", strings.Join(parts, " · "))
}

// printJob prints a one-line job summary.
func printJob(job *pipeline.Job) {
	state := "splitting"
	switch {
	case job.Merged:
		state = "merged"
	case job.SplitDone():
		state = "split"
	}
	joinDetail(
		fmt.Sprintf("%d pages", job.PageCount),
		fmt.Sprintf("%d/%d chunks", job.Split, job.Chunks),
		state,
	)
}

// printStats prints pipeline timings on a single line.
func printStats(s pipeline.Stats) {
	ms := func(d time.Duration) string { return d.Round(time.Millisecond).String() }
	joinDetail(
		fmt.Sprintf("%d pages", s.Pages),
		fmt.Sprintf("%d chunks", s.Chunks),
		"split "+ms(s.SplitTime),
		"composite "+ms(s.CompositeTime),
		"merge "+ms(s.MergeTime),
	)
}

// printNextStep suggests the command that continues a stepwise run.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}
