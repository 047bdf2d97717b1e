package bus

import (
	"encoding/json"
	"fmt"
	"os"
)

// MaxID is the highest motor id addressable on a bus; larger values are
// reserved by the wire protocols (e.g. broadcast).
const MaxID = 252

// NormMode selects how a motor's calibrated raw range maps onto physical
// units for the registers that require normalization.
type NormMode int

const (
	NormModeDegrees  NormMode = iota // not implemented yet
	NormModeRange100                 // [0, 100]
	NormModeRangeM100                // [-100, 100]
	NormModeVelocity                 // not implemented yet
)

func (m NormMode) String() string {
	switch m {
	case NormModeDegrees:
		return "degrees"
	case NormModeRange100:
		return "range 0..100"
	case NormModeRangeM100:
		return "range -100..100"
	case NormModeVelocity:
		return "velocity"
	default:
		return fmt.Sprintf("norm mode %d", int(m))
	}
}

// Motor is one physical actuator on the bus. Immutable after the bus is
// constructed.
type Motor struct {
	Name     string
	ID       int
	Model    string
	NormMode NormMode
}

// MotorCalibration holds the affine-normalization state for a single motor:
// the device-side homing offset and the raw-tick bounds of its usable range
// of motion.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// CalibrationMap holds calibration for a set of motors, keyed by motor name.
type CalibrationMap map[string]MotorCalibration

// LoadCalibration loads a calibration map from a JSON file.
func LoadCalibration(path string) (CalibrationMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var cal CalibrationMap
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}
	return cal, nil
}

// Save writes the calibration map to a JSON file.
func (c CalibrationMap) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
