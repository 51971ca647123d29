package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
)

// Runner runs one prediction round.
type Runner interface {
	Run(ctx context.Context) (*predictor.Round, error)
	Busy() bool
}

type roundMsg struct {
	round *predictor.Round
	err   error
}

type tickMsg time.Time

// Model is the bubbletea model behind `predictor watch`.
type Model struct {
	ctx      context.Context
	runner   Runner
	interval time.Duration
	now      func() time.Time

	auto     bool
	nextAt   time.Time
	thinking bool
	round    *predictor.Round
	err      error
	width    int

	spinner spinner.Model
	bar     progress.Model
}

// New creates a Model. The first round starts as soon as the program runs;
// with auto on, another follows every interval.
func New(ctx context.Context, r Runner, interval time.Duration, auto bool) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = titleStyle
	return Model{
		ctx:      ctx,
		runner:   r,
		interval: interval,
		now:      time.Now,
		auto:     auto,
		spinner:  sp,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
	}
}

// Init starts the spinner, the countdown clock and the first round.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick(), func() tea.Msg { return predictNow{} })
}

type predictNow struct{}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) predict() (Model, tea.Cmd) {
	if m.thinking || m.runner.Busy() {
		return m, nil
	}
	m.thinking = true
	m.err = nil
	ctx, r := m.ctx, m.runner
	return m, func() tea.Msg {
		round, err := r.Run(ctx)
		return roundMsg{round: round, err: err}
	}
}

// Update handles keys, ticks and finished rounds.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter", " ":
			return m.predict()
		case "a":
			m.auto = !m.auto
			m.nextAt = m.now().Add(m.interval)
		}
		return m, nil

	case predictNow:
		return m.predict()

	case tickMsg:
		if m.auto && !m.thinking && !m.nextAt.IsZero() && !m.now().Before(m.nextAt) {
			var cmd tea.Cmd
			m, cmd = m.predict()
			return m, tea.Batch(cmd, tick())
		}
		return m, tick()

	case roundMsg:
		m.thinking = false
		m.nextAt = m.now().Add(m.interval)
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.round = msg.round
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, r Runner, interval time.Duration, auto bool) error {
	_, err := tea.NewProgram(New(ctx, r, interval, auto), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
