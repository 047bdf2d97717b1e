package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/motorbus/pkg/arm"
	"github.com/gwillem/motorbus/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz     int  `long:"hz" default:"60" description:"Control loop frequency"`
	Mirror bool `long:"mirror" description:"Mirror mode: invert shoulder_pan and wrist_roll positions"`
	Demo   bool `long:"demo" description:"Run against two simulated arms instead of configured hardware"`
}

func (c *TeleoperateCommand) Execute(args []string) error {
	var leader, follower *arm.Arm
	var err error

	if c.Demo {
		leader, follower, err = demoArms()
	} else {
		leader, follower, err = configuredArms()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Leader:   leader,
		Follower: follower,
		Hz:       c.Hz,
		Mirror:   c.Mirror,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}

// demoArms builds a hand-animated simulated leader and an idle simulated
// follower.
func demoArms() (leader, follower *arm.Arm, err error) {
	leaderPort, err := openTransport(SimPort, true)
	if err != nil {
		return nil, nil, err
	}
	followerPort, err := openTransport(SimPort, false)
	if err != nil {
		return nil, nil, err
	}

	leader, err = arm.New(leaderPort, fullRangeCalibration())
	if err != nil {
		return nil, nil, fmt.Errorf("connect leader: %w", err)
	}
	follower, err = arm.New(followerPort, fullRangeCalibration())
	if err != nil {
		leader.Close()
		return nil, nil, fmt.Errorf("connect follower: %w", err)
	}
	return leader, follower, nil
}

// configuredArms connects the leader/follower pair named in the config
// file.
func configuredArms() (leader, follower *arm.Arm, err error) {
	cfg, err := arm.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("no configuration found; run 'motorbus calibrate' first or use --demo")
	}
	if cfg.Leader.Port == "" || cfg.Follower.Port == "" {
		return nil, nil, fmt.Errorf("arms not configured in %s", arm.DefaultConfigFile)
	}
	if !cfg.Leader.IsCalibrated() || !cfg.Follower.IsCalibrated() {
		return nil, nil, fmt.Errorf("arms not calibrated; run 'motorbus calibrate' first")
	}

	leaderPort, err := openTransport(cfg.Leader.Port, false)
	if err != nil {
		return nil, nil, err
	}
	followerPort, err := openTransport(cfg.Follower.Port, false)
	if err != nil {
		return nil, nil, err
	}

	leader, err = arm.New(leaderPort, cfg.Leader.Calibration)
	if err != nil {
		return nil, nil, fmt.Errorf("connect leader: %w", err)
	}
	follower, err = arm.New(followerPort, cfg.Follower.Calibration)
	if err != nil {
		leader.Close()
		return nil, nil, fmt.Errorf("connect follower: %w", err)
	}
	return leader, follower, nil
}

type teleopModel struct {
	ctrl     *teleop.Controller
	inner    monitorModel
	logs     []string
	quitting bool
}

type ctrlStateMsg teleop.State
type ctrlLogMsg string

func waitForCtrlState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return ctrlStateMsg(<-ctrl.States())
	}
}

func waitForCtrlLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return ctrlLogMsg(<-ctrl.Logs())
	}
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	return teleopModel{
		ctrl:  ctrl,
		inner: initialMonitorModel(ctrl.Hz(), nil),
	}
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForCtrlState(m.ctrl),
		waitForCtrlLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.inner.width = msg.Width
		m.inner.height = msg.Height
		m.inner.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case ctrlStateMsg:
		state := teleop.State(msg)
		if state.Positions != nil && m.inner.hasMovement(state.Positions) {
			for name, pos := range state.Positions {
				m.inner.chart.PushDataSet(name, pos)
			}
			m.inner.chart.DrawAll()
			m.inner.lastPositions = state.Positions
		}
		return m, waitForCtrlState(m.ctrl)

	case ctrlLogMsg:
		m.addLog(string(msg))
		return m, waitForCtrlLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.inner.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.inner.width, m.inner.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.inner.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.inner.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}
