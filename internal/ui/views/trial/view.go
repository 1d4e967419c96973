package trial

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	trialdto "evseg/internal/modules/trial/dto"
	"evseg/internal/ui/theme"
)

// ─── port ────────────────────────────────────────────────────────────────────

// Port is the minimal interface this view needs from the trial use-case.
type Port interface {
	Run(ctx context.Context, path, mode string, trial int, rt *float64, key *string) (trialdto.RunOutput, error)
	Frame() trialdto.FrameOutput
	Press(key string)
}

// Options selects what the view runs.
type Options struct {
	Path  string
	Mode  string
	Trial int
	RT    *float64
	Key   *string
}

// ─── messages ────────────────────────────────────────────────────────────────

type frameTickMsg time.Time

// RunDoneMsg is sent when the timeline has finished or was aborted.
type RunDoneMsg struct {
	Out trialdto.RunOutput
	Err error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Abort   key.Binding
	Respond key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Abort:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "abort")),
		Respond: key.NewBinding(key.WithKeys(" "), key.WithHelp("keys", "respond")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Respond, k.Abort}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

const frameInterval = 50 * time.Millisecond

// ─── model ───────────────────────────────────────────────────────────────────

// Model shows the running trial: one progress bar per layered video, the
// annotation baseline and the response markers placed on it.
type Model struct {
	port     Port
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	bar      progress.Model
	frame    trialdto.FrameOutput
	out      trialdto.RunOutput
	err      error
	done     bool
	aborting bool
	width    int
	height   int
}

func New(ctx context.Context, port Port, opts Options) Model {
	runCtx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	bar := progress.New(progress.WithSolidFill(string(theme.Sapphire)), progress.WithoutPercentage())

	h := help.New()
	h.Styles.ShortKey = theme.Muted
	h.Styles.ShortDesc = theme.Muted

	return Model{
		port:    port,
		opts:    opts,
		ctx:     runCtx,
		cancel:  cancel,
		keys:    defaultKeys(),
		help:    h,
		spinner: sp,
		bar:     bar,
		frame:   trialdto.FrameOutput{Cleared: true},
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.runCmd(), frameTick(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, m.width/2)

	case frameTickMsg:
		m.frame = m.port.Frame()
		if m.done {
			return m, nil
		}
		return m, frameTick()

	case RunDoneMsg:
		m.done = true
		m.out = msg.Out
		m.err = msg.Err
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Abort) {
			m.aborting = true
			m.cancel()
			return m, nil
		}
		if name := KeyName(msg); name != "" {
			m.port.Press(name)
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	header := theme.Title.Render("evseg") + "  " +
		theme.Muted.Render(fmt.Sprintf("%s  %s", m.mode(), filepath.Base(m.opts.Path)))

	var body string
	switch {
	case m.aborting:
		body = m.spinner.View() + " Aborting…"
	case m.frame.Cleared || len(m.frame.Videos) == 0:
		body = m.spinner.View() + " Waiting for the next trial…"
	default:
		body = m.renderFrame()
	}
	pane := theme.Pane.Width(max(20, m.width-4)).Render(body)
	return lipgloss.JoinVertical(lipgloss.Left, header, pane, m.help.View(m.keys))
}

// Result returns the run output once the program has quit.
func (m Model) Result() (trialdto.RunOutput, error) {
	return m.out, m.err
}

// ─── private ─────────────────────────────────────────────────────────────────

func (m Model) runCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.port.Run(m.ctx, m.opts.Path, m.opts.Mode, m.opts.Trial, m.opts.RT, m.opts.Key)
		return RunDoneMsg{Out: out, Err: err}
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameTickMsg(t) })
}

func (m Model) mode() string {
	if m.opts.Mode == "" {
		return trialdto.ModeRun
	}
	return m.opts.Mode
}

func (m Model) renderFrame() string {
	lines := make([]string, 0, len(m.frame.Videos)+3)
	for _, v := range m.frame.Videos {
		lines = append(lines, m.renderVideo(v))
	}
	if m.frame.HasBaseline {
		cols := max(10, m.width-8)
		lines = append(lines, "", RenderBaseline(m.frame.BaselineWidth, m.frame.Markers, cols))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderVideo(v trialdto.VideoFrameOutput) string {
	name := theme.Muted.Render(filepath.Base(v.Source))
	if v.Responded {
		name = theme.Hot.Render(filepath.Base(v.Source))
	}
	if !v.Visible {
		return fmt.Sprintf("%s  %s", name, theme.Muted.Render("(seeking)"))
	}
	pct := 0.0
	if v.Duration > 0 {
		pct = math.Min(1, v.Position/v.Duration)
	}
	state := "paused"
	if v.Playing {
		state = "playing"
	}
	return fmt.Sprintf("%s  %s  %s", name, m.bar.ViewAs(pct),
		theme.Muted.Render(fmt.Sprintf("%5.1fs %s", v.Position, state)))
}

// RenderBaseline draws the baseline cols characters wide with a '|' for every
// marker, scaled from the baseline's pixel width.
func RenderBaseline(width float64, markers []trialdto.MarkerFrameOutput, cols int) string {
	if cols <= 0 {
		return ""
	}
	line := []rune(strings.Repeat("─", cols))
	for _, mk := range markers {
		col := 0
		if width > 0 {
			col = int(math.Round(mk.X / width * float64(cols-1)))
		}
		col = min(max(col, 0), cols-1)
		line[col] = '|'
	}
	styled := theme.Baseline.Render(string(line))
	if len(markers) > 0 {
		styled = strings.ReplaceAll(styled, "|", theme.Marker.Render("|"))
	}
	return styled
}

// KeyName maps a terminal key press onto the key names trials are
// configured with.
func KeyName(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeySpace:
		return " "
	case tea.KeyLeft:
		return "arrowleft"
	case tea.KeyRight:
		return "arrowright"
	case tea.KeyUp:
		return "arrowup"
	case tea.KeyDown:
		return "arrowdown"
	case tea.KeyEnter:
		return "enter"
	case tea.KeyTab:
		return "tab"
	case tea.KeyBackspace:
		return "backspace"
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) != 1 {
			return ""
		}
		return strings.ToLower(string(msg.Runes))
	}
	return ""
}
