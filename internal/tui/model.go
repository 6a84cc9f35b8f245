// Package tui wires the monitor, tailer and dashboard state into a
// Bubble Tea program.
package tui

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/rs/zerolog"

	"slurm-watch/internal/config"
	"slurm-watch/internal/dashboard"
	"slurm-watch/internal/logging"
	"slurm-watch/internal/monitor"
	"slurm-watch/internal/slurm"
	"slurm-watch/internal/tailer"
)

type (
	tickMsg      time.Time
	refreshMsg   struct{}
	discoveryMsg struct{ rows []slurm.JobRow }
	errMsg       struct{ err error }
)

// Model is the Bubble Tea model for the dashboard. The heavy state
// lives in dashboard.State, which the monitor and tailer goroutines
// mutate directly; the model only re-renders from it.
type Model struct {
	state  *dashboard.State
	mon    *monitor.Monitor
	tail   *tailer.Tailer
	client *slurm.Client
	cfg    *config.Config
	log    zerolog.Logger
	help   help.Model

	width  int
	height int

	discover bool
	lastErr  error
}

// NewModel assembles the dashboard model.
func NewModel(state *dashboard.State, mon *monitor.Monitor, tail *tailer.Tailer, client *slurm.Client, cfg *config.Config, discover bool) Model {
	return Model{
		state:    state,
		mon:      mon,
		tail:     tail,
		client:   client,
		cfg:      cfg,
		log:      logging.Component("tui"),
		help:     help.New(),
		discover: discover,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.tickCmd(), initialWindowSizeCmd()}
	if m.discover {
		cmds = append(cmds, m.discoveryCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, m.tickCmd()

	case refreshMsg:
		return m, nil

	case discoveryMsg:
		m.lastErr = nil
		for _, row := range msg.rows {
			m.mon.Track(row.ID)
		}
		return m, m.discoveryCmd()

	case errMsg:
		m.lastErr = msg.err
		if m.discover {
			// Keep the discovery loop alive through transient failures.
			return m, m.discoveryCmd()
		}
		return m, nil

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.state.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.state.ScrollDown(3)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleAction(keys.ActionFor(msg))
	}
	return m, nil
}

func (m Model) handleAction(action Action) (tea.Model, tea.Cmd) {
	switch action {
	case ActionScrollUp:
		m.state.ScrollUp(1)
	case ActionScrollDown:
		m.state.ScrollDown(1)
	case ActionPageUp:
		m.state.ScrollUp(m.pageSize())
	case ActionPageDown:
		m.state.ScrollDown(m.pageSize())
	case ActionScrollTop:
		m.state.ScrollToTop()
	case ActionScrollBottom:
		m.state.ScrollToBottom()
	case ActionSwitchFocus:
		m.state.SwitchFocus()
	case ActionNextJob:
		m.state.NextJob()
	case ActionPrevJob:
		m.state.PrevJob()
	case ActionRemoveJob:
		if id, ok := m.state.Current(); ok {
			m.removeJob(id)
		}
	case ActionFollow:
		m.state.Follow()
	case ActionToggleHelp:
		m.help.ShowAll = !m.help.ShowAll
	case ActionCopyPane:
		if id, ok := m.state.Current(); ok {
			key := slurm.StreamKey{Job: id, Stream: m.state.Focus()}
			if text := m.state.Content(key); text != "" {
				return m, osc52CopyCmd(text)
			}
		}
	case ActionQuit:
		return m, tea.Quit
	}
	return m, nil
}

// pageSize is the pane content height the renderer fed back into the
// state on the last draw.
func (m Model) pageSize() int {
	return m.state.ViewportHeight()
}

func (m Model) removeJob(id slurm.JobID) {
	m.mon.Untrack(id)
	m.tail.Remove(slurm.StreamKey{Job: id, Stream: slurm.StreamStdout})
	m.tail.Remove(slurm.StreamKey{Job: id, Stream: slurm.StreamStderr})
	m.state.RemoveJob(id)
	m.log.Info().Int("job_id", int(id)).Msg("job removed from dashboard")
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}
	footer := m.help.View(keys)
	if m.lastErr != nil {
		footer = "error: " + m.lastErr.Error()
	}
	return dashboard.Render(m.state, m.width, m.height, footer)
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.UI.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) discoveryCmd() tea.Cmd {
	return tea.Tick(m.cfg.Discovery.Interval, func(time.Time) tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Poll.CommandTimeout)
		defer cancel()
		rows, err := m.client.VisibleJobs(ctx)
		if err != nil {
			return errMsg{err}
		}
		return discoveryMsg{rows}
	})
}

func initialWindowSizeCmd() tea.Cmd {
	return func() tea.Msg {
		width, height := detectTerminalSize()
		return tea.WindowSizeMsg{Width: width, Height: height}
	}
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

func osc52CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text).Limit(100 * 1024)

		termName := strings.ToLower(os.Getenv("TERM"))
		if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(termName, "tmux") {
			seq = seq.Tmux()
		} else if strings.HasPrefix(termName, "screen") {
			seq = seq.Screen()
		}

		_, _ = seq.WriteTo(os.Stdout)
		return nil
	}
}

// Controller owns the background components and the program lifecycle.
type Controller struct {
	state  *dashboard.State
	mon    *monitor.Monitor
	tail   *tailer.Tailer
	client *slurm.Client
	cfg    *config.Config
	log    zerolog.Logger

	mu      sync.Mutex
	program *tea.Program
}

// NewController builds the component graph for a watch session.
func NewController(client *slurm.Client, cfg *config.Config) *Controller {
	c := &Controller{
		state:  dashboard.NewState(cfg.UI.MaxLogLines),
		client: client,
		cfg:    cfg,
		log:    logging.Component("controller"),
	}
	c.tail = tailer.New(cfg.Poll.TailInterval)
	c.mon = monitor.New(client, cfg.Poll.StatusInterval, c.onStatus)
	return c
}

// Track adds jobs to the session before or after Run.
func (c *Controller) Track(ids ...slurm.JobID) {
	for _, id := range ids {
		c.mon.Track(id)
	}
}

// onStatus is the monitor callback. It feeds the dashboard and
// registers output files with the tailer the first time their paths
// resolve.
func (c *Controller) onStatus(id slurm.JobID, status slurm.Status, info slurm.JobInfo) {
	c.state.UpdateJob(id, status, info)
	c.registerStreams(id, info)
	c.refresh()
}

// onChunk is the tailer callback.
func (c *Controller) onChunk(key slurm.StreamKey, chunk string) {
	c.state.Append(key, chunk)
	c.refresh()
}

// refresh nudges the program to repaint before the next tick.
func (c *Controller) refresh() {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()
	if p != nil {
		p.Send(refreshMsg{})
	}
}

// registerStreams hands a job's output files to the tailer once their
// paths resolve. Add is idempotent, so calling this every cycle is
// safe.
func (c *Controller) registerStreams(id slurm.JobID, info slurm.JobInfo) {
	stdoutPath, stderrPath := info.StdoutPath, info.StderrPath
	if stdoutPath == "" && stderrPath == "" {
		stdoutKey := slurm.StreamKey{Job: id, Stream: slurm.StreamStdout}
		if c.tail.Has(stdoutKey) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Poll.CommandTimeout)
		defer cancel()
		var err error
		stdoutPath, stderrPath, err = c.client.LogPaths(ctx, id)
		if err != nil {
			c.log.Debug().Err(err).Int("job_id", int(id)).Msg("log paths not resolvable yet")
			return
		}
	}

	if stdoutPath != "" {
		c.tail.Add(slurm.StreamKey{Job: id, Stream: slurm.StreamStdout}, stdoutPath, c.onChunk)
	}
	// Merged output means both panes would double up; stderr stays
	// empty instead.
	if stderrPath != "" && stderrPath != stdoutPath {
		c.tail.Add(slurm.StreamKey{Job: id, Stream: slurm.StreamStderr}, stderrPath, c.onChunk)
	}
}

// Registered reports whether a stream was handed to the tailer.
func (c *Controller) Registered(key slurm.StreamKey) bool {
	return c.tail.Has(key)
}

// State exposes the dashboard model, mainly for tests.
func (c *Controller) State() *dashboard.State {
	return c.state
}

// Monitor exposes the status monitor, mainly for tests.
func (c *Controller) Monitor() *monitor.Monitor {
	return c.mon
}

// Run starts the background loops and blocks in the Bubble Tea event
// loop until the user quits.
func (c *Controller) Run(ctx context.Context, discover bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.mon.Start(ctx); err != nil {
		return err
	}
	if err := c.tail.Start(ctx); err != nil {
		_ = c.mon.Stop()
		return err
	}
	defer func() {
		if err := c.tail.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("tailer stop")
		}
		if err := c.mon.Stop(); err != nil {
			c.log.Warn().Err(err).Msg("monitor stop")
		}
	}()

	model := NewModel(c.state, c.mon, c.tail, c.client, c.cfg, discover)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	c.mu.Lock()
	c.program = p
	c.mu.Unlock()

	_, err := p.Run()

	c.mu.Lock()
	c.program = nil
	c.mu.Unlock()
	return err
}
