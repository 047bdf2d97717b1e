package main

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/motorbus/pkg/arm"
	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
	"github.com/gwillem/motorbus/pkg/sim"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// SimPort selects the built-in simulated arm instead of a serial device.
const SimPort = "sim"

// openTransport resolves a port name to a transport. The name "sim" yields a
// simulated SO-101 chain; animate additionally sweeps its joints so
// read-only tools have something to show.
func openTransport(port string, animate bool) (bus.Transport, error) {
	if port != SimPort {
		// Packet framing for real serial hardware comes from a vendor
		// transport; none ships with this tool yet.
		return nil, fmt.Errorf("unsupported port %q: only the built-in %q port is available", port, SimPort)
	}

	motors := make(map[int]string)
	for _, m := range arm.Motors() {
		motors[m.ID] = m.Model
	}
	transport, err := sim.New(feetech.Family, motors)
	if err != nil {
		return nil, err
	}
	if animate {
		transport.Motion = sweepMotion
	}
	return transport, nil
}

// sweepMotion moves each simulated joint along its own slow sine arc.
func sweepMotion(id, tick int) int {
	phase := float64(tick)/40 + float64(id)
	return 2048 + int(1500*math.Sin(phase))
}

// fullRangeCalibration spans the whole encoder, for tools that need to show
// positions before a real calibration exists.
func fullRangeCalibration() bus.CalibrationMap {
	cal := bus.CalibrationMap{}
	for _, m := range arm.Motors() {
		cal[m.Name] = bus.MotorCalibration{ID: m.ID, RangeMin: 0, RangeMax: 4095}
	}
	return cal
}
