package bus

import (
	"context"
	"fmt"
	"time"
)

// Calibration returns a copy of the calibration the bus currently applies.
func (b *Bus) Calibration() CalibrationMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(CalibrationMap, len(b.cal))
	for name, cal := range b.cal {
		out[name] = cal
	}
	return out
}

// ResetCalibration clears the device-side calibration of the given motors
// (all motors when none are given): homing offset zero and position limits
// spanning the full encoder resolution. The in-memory calibration for those
// motors is dropped as well.
func (b *Bus) ResetCalibration(motors ...string) error {
	targets, err := b.resolveMotors(motors)
	if err != nil {
		return err
	}

	for _, m := range targets {
		res, ok := b.family.Resolutions[m.Model]
		if !ok {
			return fmt.Errorf("resolution for model %q: %w", m.Model, ErrNotFound)
		}
		if err := b.Write("Homing_Offset", m.Name, 0, false, defaultRetries); err != nil {
			return err
		}
		if err := b.Write("Min_Position_Limit", m.Name, 0, false, defaultRetries); err != nil {
			return err
		}
		if err := b.Write("Max_Position_Limit", m.Name, float64(res-1), false, defaultRetries); err != nil {
			return err
		}
	}

	b.mu.Lock()
	for _, m := range targets {
		delete(b.cal, m.Name)
	}
	b.mu.Unlock()
	return nil
}

// SetHalfTurnHomings re-homes the given motors (all when none are given) so
// that their current pose reads as the middle of the encoder range. The
// chain must be physically held in its neutral pose when this runs. Returns
// the homing offset written per motor.
func (b *Bus) SetHalfTurnHomings(motors ...string) (map[string]int, error) {
	targets, err := b.resolveMotors(motors)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(targets))
	for i, m := range targets {
		names[i] = m.Name
	}

	// Any previous offset would skew the positions we are about to read.
	if err := b.ResetCalibration(names...); err != nil {
		return nil, err
	}

	positions, err := b.SyncRead("Present_Position", names, false, defaultRetries)
	if err != nil {
		return nil, err
	}

	offsets := make(map[string]int, len(targets))
	for _, m := range targets {
		res := b.family.Resolutions[m.Model]
		offset := b.family.halfTurnHoming(int(positions[m.Name]), res)
		if err := b.Write("Homing_Offset", m.Name, float64(offset), false, defaultRetries); err != nil {
			return nil, err
		}
		offsets[m.Name] = offset
	}
	return offsets, nil
}

// RangeSample is one observation during range-of-motion recording: the raw
// positions just read and the running extrema so far.
type RangeSample struct {
	Positions map[string]int
	Mins      map[string]int
	Maxes     map[string]int
}

// RecordRangesOfMotion polls raw positions while the operator moves each
// joint through its full travel, tracking per-motor extrema until ctx is
// cancelled. onSample, if non-nil, is invoked after every poll so callers
// can drive a live display. Returns the recorded minima and maxima.
func (b *Bus) RecordRangesOfMotion(ctx context.Context, motors []string, onSample func(RangeSample)) (mins, maxes map[string]int, err error) {
	targets, err := b.resolveMotors(motors)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(targets))
	for i, m := range targets {
		names[i] = m.Name
	}

	start, err := b.SyncRead("Present_Position", names, false, defaultRetries)
	if err != nil {
		return nil, nil, err
	}
	mins = make(map[string]int, len(targets))
	maxes = make(map[string]int, len(targets))
	for name, pos := range start {
		mins[name] = int(pos)
		maxes[name] = int(pos)
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return mins, maxes, nil
		case <-ticker.C:
		}

		positions, err := b.SyncRead("Present_Position", names, false, defaultRetries)
		if err != nil {
			return nil, nil, err
		}

		sample := RangeSample{
			Positions: make(map[string]int, len(positions)),
			Mins:      make(map[string]int, len(positions)),
			Maxes:     make(map[string]int, len(positions)),
		}
		for name, pos := range positions {
			p := int(pos)
			sample.Positions[name] = p
			if p < mins[name] {
				mins[name] = p
			}
			if p > maxes[name] {
				maxes[name] = p
			}
			sample.Mins[name] = mins[name]
			sample.Maxes[name] = maxes[name]
		}
		if onSample != nil {
			onSample(sample)
		}
	}
}

// hasDriveMode reports whether every configured model exposes a Drive_Mode
// register. Families without one report drive mode 0 for all motors.
func (b *Bus) hasDriveMode() bool {
	for _, m := range b.motors {
		if _, err := b.family.Lookup(m.Model, "Drive_Mode"); err != nil {
			return false
		}
	}
	return true
}

// ReadCalibration fetches the calibration currently held by the motors
// themselves. It does not change the calibration the bus applies; pass the
// result to WriteCalibration to adopt it.
func (b *Bus) ReadCalibration() (CalibrationMap, error) {
	offsets, err := b.SyncRead("Homing_Offset", nil, false, defaultRetries)
	if err != nil {
		return nil, err
	}
	mins, err := b.SyncRead("Min_Position_Limit", nil, false, defaultRetries)
	if err != nil {
		return nil, err
	}
	maxes, err := b.SyncRead("Max_Position_Limit", nil, false, defaultRetries)
	if err != nil {
		return nil, err
	}

	var driveModes map[string]float64
	if b.hasDriveMode() {
		driveModes, err = b.SyncRead("Drive_Mode", nil, false, defaultRetries)
		if err != nil {
			return nil, err
		}
	}

	cal := make(CalibrationMap, len(b.motors))
	for _, m := range b.motors {
		entry := MotorCalibration{
			ID:           m.ID,
			HomingOffset: int(offsets[m.Name]),
			RangeMin:     int(mins[m.Name]),
			RangeMax:     int(maxes[m.Name]),
		}
		if driveModes != nil {
			entry.DriveMode = int(driveModes[m.Name])
		}
		cal[m.Name] = entry
	}
	return cal, nil
}

// WriteCalibration pushes a calibration map to the motors and adopts it as
// the bus's active calibration. Every key must name a configured motor.
func (b *Bus) WriteCalibration(cal CalibrationMap) error {
	for name, entry := range cal {
		m, err := b.Motor(name)
		if err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
		if entry.ID != 0 && entry.ID != m.ID {
			return fmt.Errorf("calibration for %q: id %d does not match configured id %d", name, entry.ID, m.ID)
		}
	}

	writeDriveMode := b.hasDriveMode()
	for name, entry := range cal {
		if err := b.Write("Homing_Offset", name, float64(entry.HomingOffset), false, defaultRetries); err != nil {
			return err
		}
		if err := b.Write("Min_Position_Limit", name, float64(entry.RangeMin), false, defaultRetries); err != nil {
			return err
		}
		if err := b.Write("Max_Position_Limit", name, float64(entry.RangeMax), false, defaultRetries); err != nil {
			return err
		}
		if writeDriveMode {
			if err := b.Write("Drive_Mode", name, float64(entry.DriveMode), false, defaultRetries); err != nil {
				return err
			}
		}
	}

	b.mu.Lock()
	for name, entry := range cal {
		b.cal[name] = entry
	}
	b.mu.Unlock()
	return nil
}

// IsCalibrated reports whether the motors' own calibration matches what the
// bus applies. False when any motor lacks a bus-side calibration entry.
func (b *Bus) IsCalibrated() (bool, error) {
	b.mu.Lock()
	for _, m := range b.motors {
		if _, ok := b.cal[m.Name]; !ok {
			b.mu.Unlock()
			return false, nil
		}
	}
	b.mu.Unlock()

	device, err := b.ReadCalibration()
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for name, want := range b.cal {
		got := device[name]
		got.ID = want.ID
		if got != want {
			return false, nil
		}
	}
	return true, nil
}
