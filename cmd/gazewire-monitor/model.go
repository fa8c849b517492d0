// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/tracker"
)

// Messages from the listener bridge and the refresh ticker.
type (
	statusMsg struct{ status gaze.ReceptionStatus }
	stateMsg  struct{ state gaze.StateSet }
	tickMsg   time.Time
)

// keyMap defines the dashboard key bindings.
type keyMap struct {
	AttemptStart key.Binding
	Recenter     key.Binding
	Quit         key.Binding
}

var defaultKeyMap = keyMap{
	AttemptStart: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "attempt start"),
	),
	Recenter: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "recenter"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

// rateWindow is how many recent arrivals the update-rate estimate
// averages over.
const rateWindow = 32

type model struct {
	tracker  *tracker.Tracker
	endpoint string
	keys     keyMap

	width  int
	height int

	status    gaze.ReceptionStatus
	state     gaze.StateSet
	haveState bool

	// arrivals is a ring of recent snapshot arrival times for the
	// update-rate readout.
	arrivals []time.Time

	recentering bool
}

func newModel(tr *tracker.Tracker, endpoint string) model {
	return model{
		tracker:  tr,
		endpoint: endpoint,
		keys:     defaultKeyMap,
		status:   tr.ReceptionStatus(),
	}
}

func (m model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height

	case statusMsg:
		m.status = message.status

	case stateMsg:
		m.state = message.state
		m.haveState = true
		m.arrivals = append(m.arrivals, time.Now())
		if len(m.arrivals) > rateWindow {
			m.arrivals = m.arrivals[len(m.arrivals)-rateWindow:]
		}

	case tickMsg:
		// Periodic redraw keeps the status and rate fresh while no
		// snapshots arrive.
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(message, m.keys.AttemptStart):
			m.tracker.AttemptStart()
		case key.Matches(message, m.keys.Recenter):
			if m.recentering {
				m.tracker.RecenterEnd()
				m.recentering = false
			} else if m.tracker.RecenterStart() {
				m.recentering = true
			}
		}
	}
	return m, nil
}

// updateRate estimates snapshots per second from recent arrivals.
func (m model) updateRate() float64 {
	if len(m.arrivals) < 2 {
		return 0
	}
	first := m.arrivals[0]
	last := m.arrivals[len(m.arrivals)-1]
	if time.Since(last) > 2*time.Second {
		return 0
	}
	span := last.Sub(first).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(m.arrivals)-1) / span
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)

	statusStyles = map[gaze.ReceptionStatus]lipgloss.Style{
		gaze.StatusReceiving:           lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		gaze.StatusNotReceiving:        lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		gaze.StatusAttemptingAutoStart: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}

	confidenceStyles = map[gaze.Confidence]lipgloss.Style{
		gaze.ConfidenceHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		gaze.ConfidenceMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("148")),
		gaze.ConfidenceLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		gaze.ConfidenceLost:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
)

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gazewire monitor"))
	b.WriteString(faintStyle.Render("  " + m.endpoint))
	b.WriteString("\n\n")

	statusStyle, ok := statusStyles[m.status]
	if !ok {
		statusStyle = faintStyle
	}
	b.WriteString(labelStyle.Render("status"))
	b.WriteString(statusStyle.Render(m.status.String()))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("service"))
	if v := m.tracker.ServiceVersion(); v != (gaze.Version{}) {
		b.WriteString(fmt.Sprintf("%v  session %s", v, m.tracker.SessionID()))
	} else {
		b.WriteString(faintStyle.Render("not connected"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("rate"))
	if rate := m.updateRate(); rate > 0 {
		b.WriteString(fmt.Sprintf("%.0f/s", rate))
	} else {
		b.WriteString(faintStyle.Render("idle"))
	}
	b.WriteString("\n\n")

	if !m.haveState {
		b.WriteString(faintStyle.Render("waiting for data"))
		b.WriteString("\n")
		b.WriteString(m.helpLine())
		return b.String()
	}

	u := m.state.User
	b.WriteString(labelStyle.Render("gaze"))
	b.WriteString(fmt.Sprintf("(%4d, %4d)  ", u.ScreenGaze.PointOfRegard.X, u.ScreenGaze.PointOfRegard.Y))
	b.WriteString(confidenceBadge(u.ScreenGaze.Confidence))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(""))
	b.WriteString(gazeBar(u.ViewportGaze.NormalizedPointOfRegard.X, m.barWidth()))
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("head"))
	b.WriteString(fmt.Sprintf("x %+.3f  y %+.3f  z %+.3f  track %d  ",
		u.HeadPose.Translation.X, u.HeadPose.Translation.Y, u.HeadPose.Translation.Z,
		u.HeadPose.TrackSessionID))
	b.WriteString(confidenceBadge(u.HeadPose.Confidence))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("hud"))
	b.WriteString(hudRow(m.state.HUD.TopLeft, m.state.HUD.TopMiddle, m.state.HUD.TopRight))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(""))
	b.WriteString(hudRow(m.state.HUD.Left, -1, m.state.HUD.Right))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(""))
	b.WriteString(hudRow(m.state.HUD.BottomLeft, m.state.HUD.BottomMiddle, m.state.HUD.BottomRight))
	b.WriteString("\n\n")

	f := m.state.Foveation
	b.WriteString(labelStyle.Render("foveation"))
	b.WriteString(fmt.Sprintf("center (%.2f, %.2f)  radii %.2f %.2f %.2f %.2f",
		f.Center.X, f.Center.Y, f.Radii[0], f.Radii[1], f.Radii[2], f.Radii[3]))
	b.WriteString("\n")

	b.WriteString(m.helpLine())
	return b.String()
}

func (m model) helpLine() string {
	parts := []string{
		m.keys.AttemptStart.Help().Key + " " + m.keys.AttemptStart.Help().Desc,
		m.keys.Recenter.Help().Key + " " + recenterHelp(m.recentering),
		m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc,
	}
	return helpStyle.Render(strings.Join(parts, "  ·  "))
}

func recenterHelp(active bool) string {
	if active {
		return "recenter (commit)"
	}
	return "recenter"
}

func (m model) barWidth() int {
	if m.width > 52 {
		return m.width - 16
	}
	return 36
}

// gazeBar renders the horizontal gaze position as a marker on a track.
func gazeBar(x float32, width int) string {
	if width < 3 {
		width = 3
	}
	pos := int(x * float32(width-1))
	if pos < 0 {
		pos = 0
	}
	if pos >= width {
		pos = width - 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i == pos {
			b.WriteString(titleStyle.Render("●"))
		} else {
			b.WriteString(faintStyle.Render("─"))
		}
	}
	return b.String()
}

func confidenceBadge(c gaze.Confidence) string {
	style, ok := confidenceStyles[c]
	if !ok {
		style = faintStyle
	}
	return style.Render("[" + c.String() + "]")
}

// hudRow renders up to three region likelihoods; -1 leaves a gap for
// the grid center.
func hudRow(values ...float32) string {
	cells := make([]string, 0, len(values))
	for _, v := range values {
		if v < 0 {
			cells = append(cells, "      ")
			continue
		}
		cell := fmt.Sprintf("%4.2f", v)
		if v > 0.5 {
			cells = append(cells, titleStyle.Render(cell)+"  ")
		} else {
			cells = append(cells, faintStyle.Render(cell)+"  ")
		}
	}
	return strings.Join(cells, "")
}
