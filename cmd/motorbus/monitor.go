package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/motorbus/pkg/arm"
	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/teleop"
)

type MonitorCommand struct {
	Port        string `long:"port" default:"sim" description:"Serial port of the arm"`
	Hz          int    `long:"hz" default:"30" description:"Poll frequency"`
	Calibration string `long:"calibration" description:"Calibration file (defaults to full encoder range)"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each joint
var motorColors = map[string]string{
	arm.ShoulderPan:  "196", // red
	arm.ShoulderLift: "208", // orange
	arm.ElbowFlex:    "226", // yellow
	arm.WristFlex:    "46",  // green
	arm.WristRoll:    "51",  // cyan
	arm.Gripper:      "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *MonitorCommand) Execute(args []string) error {
	cal := fullRangeCalibration()
	if c.Calibration != "" {
		loaded, err := bus.LoadCalibration(c.Calibration)
		if err != nil {
			return err
		}
		cal = loaded
	}

	transport, err := openTransport(c.Port, true)
	if err != nil {
		return err
	}
	a, err := arm.New(transport, cal)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Hz <= 0 {
		c.Hz = 30
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := make(chan teleop.State, 1)
	go pollPositions(ctx, a, c.Hz, states)

	p := tea.NewProgram(initialMonitorModel(c.Hz, states), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	return nil
}

// pollPositions reads the arm at the given frequency and pushes states,
// dropping stale ones when the display falls behind.
func pollPositions(ctx context.Context, a *arm.Arm, hz int, states chan teleop.State) {
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		positions, err := a.ReadPositions()
		state := teleop.State{Positions: positions, Timestamp: time.Now(), Error: err}
		select {
		case states <- state:
		default:
			select {
			case <-states:
			default:
			}
			states <- state
		}
	}
}

type monitorModel struct {
	hz            int
	states        <-chan teleop.State
	chart         *streamlinechart.Model
	width         int
	height        int
	logs          []string
	quitting      bool
	lastPositions map[string]float64
}

type stateMsg teleop.State

func waitForState(states <-chan teleop.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-states)
	}
}

func initialMonitorModel(hz int, states <-chan teleop.State) monitorModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-100, 100),
	)

	for _, name := range arm.MotorNames() {
		color := motorColors[name]
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return monitorModel{
		hz:     hz,
		states: states,
		chart:  &chart,
	}
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any joint position changed since the last state
func (m *monitorModel) hasMovement(positions map[string]float64) bool {
	if m.lastPositions == nil {
		return true
	}
	for name, pos := range positions {
		if lastPos, ok := m.lastPositions[name]; !ok || pos != lastPos {
			return true
		}
	}
	return false
}

func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *monitorModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func (m monitorModel) Init() tea.Cmd {
	return waitForState(m.states)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		if state.Error != nil {
			m.addLog(fmt.Sprintf("[%s] %v", state.Timestamp.Format("15:04:05"), state.Error))
		}
		if state.Positions != nil && m.hasMovement(state.Positions) {
			for name, pos := range state.Positions {
				m.chart.PushDataSet(name, pos)
			}
			m.chart.DrawAll()
			m.lastPositions = state.Positions
		}
		return m, waitForState(m.states)
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Motor monitor"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.hz))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
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

func renderLegend() string {
	var items []string
	for _, name := range arm.MotorNames() {
		color := motorColors[name]
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
		item := colorStyle.Render("━━") + " " + name
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}
