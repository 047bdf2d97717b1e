// Package arm provides a ready-made motor layout and position interface for
// SO-101 style six-joint arms on top of the generic motor bus.
package arm

import (
	"fmt"

	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
)

// Motor names for the SO-101 arm, in servo id order (1-6).
const (
	ShoulderPan  = "shoulder_pan"
	ShoulderLift = "shoulder_lift"
	ElbowFlex    = "elbow_flex"
	WristFlex    = "wrist_flex"
	WristRoll    = "wrist_roll"
	Gripper      = "gripper"
)

// Motors returns the SO-101 motor layout. All joints report in [-100, 100]
// except the gripper, which uses [0, 100].
func Motors() []bus.Motor {
	return []bus.Motor{
		{Name: ShoulderPan, ID: 1, Model: "sts3215", NormMode: bus.NormModeRangeM100},
		{Name: ShoulderLift, ID: 2, Model: "sts3215", NormMode: bus.NormModeRangeM100},
		{Name: ElbowFlex, ID: 3, Model: "sts3215", NormMode: bus.NormModeRangeM100},
		{Name: WristFlex, ID: 4, Model: "sts3215", NormMode: bus.NormModeRangeM100},
		{Name: WristRoll, ID: 5, Model: "sts3215", NormMode: bus.NormModeRangeM100},
		{Name: Gripper, ID: 6, Model: "sts3215", NormMode: bus.NormModeRange100},
	}
}

// MotorNames returns the motor names in servo id order.
func MotorNames() []string {
	motors := Motors()
	names := make([]string, len(motors))
	for i, m := range motors {
		names[i] = m.Name
	}
	return names
}

// Arm is one connected SO-101 arm.
type Arm struct {
	Bus *bus.Bus
}

// New connects an arm over the given transport and verifies all six motors
// answer.
func New(transport bus.Transport, cal bus.CalibrationMap) (*Arm, error) {
	b, err := bus.New(bus.Config{
		Family:      feetech.Family,
		Transport:   transport,
		Motors:      Motors(),
		Calibration: cal,
	})
	if err != nil {
		return nil, fmt.Errorf("configure arm: %w", err)
	}
	if err := b.Connect(true); err != nil {
		return nil, fmt.Errorf("connect arm: %w", err)
	}
	return &Arm{Bus: b}, nil
}

// Close disconnects the arm.
func (a *Arm) Close() error {
	return a.Bus.Disconnect()
}

// Enable enables torque on all joints.
func (a *Arm) Enable() error {
	return a.Bus.EnableTorque()
}

// Disable releases all joints so the arm can be moved by hand.
func (a *Arm) Disable() error {
	return a.Bus.DisableTorque()
}

// ReadPositions reads all joints as normalized positions.
func (a *Arm) ReadPositions() (map[string]float64, error) {
	positions, err := a.Bus.SyncRead("Present_Position", nil, true, 2)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	return positions, nil
}

// WritePositions moves the joints to the given normalized positions.
func (a *Arm) WritePositions(positions map[string]float64) error {
	if err := a.Bus.SyncWrite("Goal_Position", positions, true, 2); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}
