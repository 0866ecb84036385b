package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/edgeprint/pkg/observability"
)

// Progress styles
var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	phaseStyle    = lipgloss.NewStyle().Foreground(colorWhite)
)

const barWidth = 30

// =============================================================================
// Messages
// =============================================================================

type tickMsg time.Time

type splitMsg struct {
	chunks  int
	partial bool
}

type chunkStartMsg struct{ index, pages int }

type chunkDoneMsg struct {
	index int
	err   error
}

type mergeStartMsg struct{ chunks int }

type degradedMsg struct{ edge string }

// finishedMsg ends the program with the outcome of the work function.
type finishedMsg struct{ err error }

// =============================================================================
// ProgressModel - Chunk progress view
// =============================================================================

// ProgressModel is the bubbletea model for the process command.
type ProgressModel struct {
	Title string

	Split    int
	Splitted bool
	Done     int
	Failed   int
	Current  int
	Merging  bool
	Degraded []string
	Err      error
	Finished bool

	cancel context.CancelFunc
	frame  int
	start  time.Time
}

// NewProgressModel creates a progress model. cancel is called when the
// user interrupts.
func NewProgressModel(title string, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Title: title, Current: -1, cancel: cancel, start: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tickMsg:
		if m.Finished {
			return m, nil
		}
		m.frame++
		return m, tick()
	case splitMsg:
		m.Split += msg.chunks
		if !msg.partial {
			m.Splitted = true
		}
	case chunkStartMsg:
		m.Current = msg.index
	case chunkDoneMsg:
		if msg.err != nil {
			m.Failed++
		} else {
			m.Done++
		}
	case mergeStartMsg:
		m.Merging = true
	case degradedMsg:
		m.Degraded = append(m.Degraded, msg.edge)
	case finishedMsg:
		m.Finished = true
		m.Err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.Finished {
		return ""
	}

	var b strings.Builder
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	b.WriteString(styleIconSpinner.Render(frames[m.frame%len(frames)]))
	b.WriteString(" ")
	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(time.Since(m.start).Round(time.Second).String()))
	b.WriteString("\n\n")

	b.WriteString(phaseStyle.Render(m.phase()))
	b.WriteString("\n")
	b.WriteString(m.bar())
	b.WriteString("\n")

	if len(m.Degraded) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleWarning.Render(fmt.Sprintf("%s  edge without design: %s", iconWarning, strings.Join(unique(m.Degraded), ", "))))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q cancel"))
	return b.String()
}

func (m ProgressModel) phase() string {
	switch {
	case m.Merging:
		return fmt.Sprintf("Merging %d chunks", m.Split)
	case m.Current >= 0:
		return fmt.Sprintf("Compositing chunk %d", m.Current)
	case !m.Splitted:
		return fmt.Sprintf("Splitting (%d chunks)", m.Split)
	default:
		return "Preparing slices"
	}
}

func (m ProgressModel) bar() string {
	total := m.Split
	if total == 0 {
		return barEmptyStyle.Render(strings.Repeat("░", barWidth))
	}
	filled := (m.Done + m.Failed) * barWidth / total
	filled = min(filled, barWidth)
	return barFullStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled)) +
		StyleDim.Render(fmt.Sprintf(" %d/%d chunks", m.Done+m.Failed, total))
}

func unique(s []string) []string {
	seen := make(map[string]bool, len(s))
	var out []string
	for _, v := range s {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// Hooks - Pipeline events forwarded to the program
// =============================================================================

// programHooks forwards pipeline events as bubbletea messages.
type programHooks struct {
	observability.NoopPipelineHooks
	send func(tea.Msg)
}

func (h programHooks) OnSplitComplete(_ context.Context, _ string, chunks int, partial bool, _ time.Duration, _ error) {
	h.send(splitMsg{chunks: chunks, partial: partial})
}

func (h programHooks) OnChunkStart(_ context.Context, _ string, index, pages int) {
	h.send(chunkStartMsg{index: index, pages: pages})
}

func (h programHooks) OnChunkComplete(_ context.Context, _ string, index int, _ time.Duration, err error) {
	h.send(chunkDoneMsg{index: index, err: err})
}

func (h programHooks) OnMergeStart(_ context.Context, _ string, chunks int) {
	h.send(mergeStartMsg{chunks: chunks})
}

func (h programHooks) OnSliceDegraded(_ context.Context, edge string, _ error) {
	h.send(degradedMsg{edge: edge})
}

// runWithProgress runs fn while showing a ProgressModel. Pipeline hooks are
// installed for the duration of the call.
func runWithProgress(ctx context.Context, title string, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(title, cancel), tea.WithContext(ctx), tea.WithoutSignalHandler())
	observability.SetPipelineHooks(programHooks{send: p.Send})
	defer observability.SetPipelineHooks(observability.NoopPipelineHooks{})

	var (
		wg     sync.WaitGroup
		runErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = fn(ctx)
		p.Send(finishedMsg{err: runErr})
	}()

	_, err := p.Run()
	cancel()
	wg.Wait()
	if runErr != nil {
		return runErr
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
