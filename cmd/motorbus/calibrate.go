package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/motorbus/pkg/arm"
	"github.com/gwillem/motorbus/pkg/bus"
)

type CalibrateCommand struct {
	Port   string `long:"port" default:"sim" description:"Serial port of the arm"`
	Output string `long:"output" short:"o" default:"calibration.json" description:"Where to save the calibration"`
}

func (c *CalibrateCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Motor calibration"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	transport, err := openTransport(c.Port, true)
	if err != nil {
		return err
	}
	a, err := arm.New(transport, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	b := a.Bus

	// The operator moves the arm by hand throughout.
	if err := b.DisableTorque(); err != nil {
		return fmt.Errorf("disable torque: %w", err)
	}

	fmt.Println(subHeaderStyle.Render("Step 1: homing"))
	waitForUser("Move the arm to the middle of its range of motion, then continue.")

	offsets, err := b.SetHalfTurnHomings()
	if err != nil {
		return fmt.Errorf("set homing offsets: %w", err)
	}
	fmt.Println(successStyle.Render("Homing offsets written."))
	fmt.Println()

	fmt.Println(subHeaderStyle.Render("Step 2: record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	mins, maxes, err := recordRanges(b)
	if err != nil {
		return fmt.Errorf("record ranges: %w", err)
	}

	cal := bus.CalibrationMap{}
	for _, m := range b.Motors() {
		cal[m.Name] = bus.MotorCalibration{
			ID:           m.ID,
			HomingOffset: offsets[m.Name],
			RangeMin:     mins[m.Name],
			RangeMax:     maxes[m.Name],
		}
	}

	if err := b.WriteCalibration(cal); err != nil {
		return fmt.Errorf("write calibration: %w", err)
	}
	if err := cal.Save(c.Output); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Calibration complete!"))
	fmt.Printf("Saved to %s\n", c.Output)
	return nil
}

// recordRanges runs the recorder under a live TUI until the operator is
// done.
func recordRanges(b *bus.Bus) (mins, maxes map[string]int, err error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	samples := make(chan bus.RangeSample, 1)
	type result struct {
		mins, maxes map[string]int
		err         error
	}
	done := make(chan result, 1)

	go func() {
		mins, maxes, err := b.RecordRangesOfMotion(ctx, nil, func(s bus.RangeSample) {
			select {
			case samples <- s:
			default:
				select {
				case <-samples:
				default:
				}
				samples <- s
			}
		})
		done <- result{mins, maxes, err}
	}()

	model := newRangeModel(b.MotorNames(), samples)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		cancel()
		<-done
		return nil, nil, err
	}

	cancel()
	res := <-done
	return res.mins, res.maxes, res.err
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

// Range recording TUI
type rangeModel struct {
	motors   []string
	samples  <-chan bus.RangeSample
	cur      map[string]int
	mins     map[string]int
	maxes    map[string]int
	quitting bool
}

type sampleMsg bus.RangeSample

func newRangeModel(motors []string, samples <-chan bus.RangeSample) rangeModel {
	return rangeModel{
		motors:  motors,
		samples: samples,
		cur:     make(map[string]int),
		mins:    make(map[string]int),
		maxes:   make(map[string]int),
	}
}

func waitForSample(samples <-chan bus.RangeSample) tea.Cmd {
	return func() tea.Msg {
		return sampleMsg(<-samples)
	}
}

func (m rangeModel) Init() tea.Cmd {
	return waitForSample(m.samples)
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case sampleMsg:
		for name, pos := range msg.Positions {
			m.cur[name] = pos
		}
		for name, pos := range msg.Mins {
			m.mins[name] = pos
		}
		for name, pos := range msg.Maxes {
			m.maxes[name] = pos
		}
		return m, waitForSample(m.samples)
	}

	return m, nil
}

func (m rangeModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, name := range m.motors {
		rangeSize := m.maxes[name] - m.mins[name]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", m.cur[name]),
			fmt.Sprintf("%d", m.mins[name]),
			fmt.Sprintf("%d", m.maxes[name]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableMotorStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
