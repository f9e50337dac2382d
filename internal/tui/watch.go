// Package tui animates a running plant in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/experiment"
	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/viz"
)

const historyLen = 60

var (
	keyHint     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

// Feed is a sim.Observer that hands samples to the view. With a positive
// speed it holds each sample until its simulated time, scaled by speed, has
// elapsed on the wall clock. A full feed blocks the loop.
type Feed struct {
	ctx   context.Context
	ch    chan dynamo.Sample
	speed float64

	mu      sync.Mutex
	started bool
	start   time.Time
	t0      float64
}

func NewFeed(ctx context.Context, speed float64) *Feed {
	return &Feed{ctx: ctx, ch: make(chan dynamo.Sample), speed: speed}
}

func (f *Feed) OnStep(s dynamo.Sample) {
	if wait := f.delay(s.T); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-f.ctx.Done():
			timer.Stop()
			return
		}
	}
	select {
	case f.ch <- s:
	case <-f.ctx.Done():
	}
}

func (f *Feed) delay(t float64) time.Duration {
	if f.speed <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		f.started, f.start, f.t0 = true, time.Now(), t
		return 0
	}
	due := f.start.Add(time.Duration((t - f.t0) / f.speed * float64(time.Second)))
	return time.Until(due)
}

// Rebase restarts the pacing clock, so a resumed view does not replay the
// paused interval at full speed.
func (f *Feed) Rebase() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-f.ch
		if !ok {
			return nil
		}
		return sampleMsg(s)
	}
}

type sampleMsg dynamo.Sample

type doneMsg struct{}

type outcome struct {
	result *sim.Result
	err    error
}

// Watch is the bubbletea model of a live run.
type Watch struct {
	title    string
	duration float64
	labels   []string
	tracked  int

	feed     *Feed
	cancel   context.CancelFunc
	finished <-chan struct{}
	out      *outcome

	scene   *Scene
	frame   string
	last    dynamo.Sample
	seen    bool
	history []float64
	waiting bool
	paused  bool
	done    bool
}

func newWatch(exp *experiment.Experiment, feed *Feed, cancel context.CancelFunc, finished <-chan struct{}, out *outcome) Watch {
	cfg := exp.Config()
	meta := exp.Metadata(nil)
	scene := NewScene(cfg.Plant, 70, 18)
	return Watch{
		title:    fmt.Sprintf("%s  %s  %s", cfg.Plant, meta.Controller, meta.Scheme),
		duration: cfg.Duration,
		labels:   meta.StateLabels,
		tracked:  experiment.TrackedState(cfg, exp.Plant().Model()),
		feed:     feed,
		cancel:   cancel,
		finished: finished,
		out:      out,
		scene:    scene,
		frame:    scene.Draw(nil),
		history:  make([]float64, 0, historyLen),
		waiting:  true,
	}
}

func (m Watch) Init() tea.Cmd {
	return tea.Batch(m.feed.next(), m.wait())
}

func (m Watch) wait() tea.Cmd {
	return func() tea.Msg {
		<-m.finished
		return doneMsg{}
	}
}

func (m Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sampleMsg:
		m.last = dynamo.Sample(msg)
		m.seen = true
		m.waiting = false
		m.frame = m.scene.Draw(m.last.X)
		if m.tracked < len(m.last.X) {
			m.history = append(m.history, m.last.X[m.tracked])
			if len(m.history) > historyLen {
				m.history = m.history[1:]
			}
		}
		if m.paused {
			return m, nil
		}
		m.waiting = true
		return m, m.feed.next()

	case doneMsg:
		m.done = true
		return m, nil

	case tea.WindowSizeMsg:
		m.scene = NewScene(m.scene.plant, msg.Width-6, msg.Height-10)
		m.frame = m.scene.Draw(m.last.X)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case " ", "space", "p":
			if m.done {
				return m, nil
			}
			m.paused = !m.paused
			if !m.paused {
				m.feed.Rebase()
				if !m.waiting {
					m.waiting = true
					return m, m.feed.next()
				}
			}
		}
	}
	return m, nil
}

func (m Watch) View() string {
	var b strings.Builder

	frac := 0.0
	if m.duration > 0 {
		frac = m.last.T / m.duration
	}
	if m.done {
		frac = 1
	}
	b.WriteString(viz.Title.Render(m.title))
	b.WriteString(fmt.Sprintf("  t=%6.2fs  ", m.last.T))
	b.WriteString(viz.ProgressBar(frac, 30))
	b.WriteString("\n")

	b.WriteString(viz.Panel.Render(m.frame))
	b.WriteString("\n")

	if m.seen {
		parts := make([]string, len(m.last.X))
		for i, v := range m.last.X {
			name := fmt.Sprintf("x%d", i)
			if i < len(m.labels) {
				name = m.labels[i]
			}
			parts[i] = viz.MetricLabel.Render(name+"=") + viz.MetricValue.Render(fmt.Sprintf("%.3f", v))
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
		b.WriteString(viz.Sparkline(m.history, historyLen))
		b.WriteString("\n")
	}

	switch {
	case m.done && m.out.err != nil:
		b.WriteString(viz.StatusFailed.Render("halted: " + m.out.err.Error()))
	case m.done:
		b.WriteString(viz.StatusOK.Render("finished"))
		if m.out.result != nil {
			b.WriteString("\n")
			b.WriteString(viz.MetricsTable(m.out.result.Metrics))
		}
	case m.paused:
		b.WriteString(pausedStyle.Render("paused"))
	}
	b.WriteString("\n")
	b.WriteString(keyHint.Render("space pause  q quit"))
	return b.String()
}

// Run runs exp under a live terminal view. Quitting the view cancels the
// run, which then returns its partial result with ErrContextCanceled.
func Run(ctx context.Context, exp *experiment.Experiment, speed float64, opts ...tea.ProgramOption) (*sim.Result, error) {
	if exp.Loop() == nil {
		if err := exp.Setup(); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := NewFeed(ctx, speed)
	exp.Loop().AddObserver(feed)

	out := &outcome{}
	finished := make(chan struct{})
	go func() {
		out.result, out.err = exp.Run(ctx)
		close(feed.ch)
		close(finished)
	}()

	_, err := tea.NewProgram(newWatch(exp, feed, cancel, finished, out), opts...).Run()
	cancel()
	<-finished
	if err != nil {
		return out.result, fmt.Errorf("watch: %w", err)
	}
	return out.result, out.err
}
