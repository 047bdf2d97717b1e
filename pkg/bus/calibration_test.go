package bus_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gwillem/motorbus/pkg/bus"
)

func TestResetCalibration(t *testing.T) {
	b, transport := newArm(t, fullRangeCalibration())
	connect(t, b)

	transport.SetRegister(6, "Homing_Offset", 123)
	transport.SetRegister(6, "Min_Position_Limit", 500)
	transport.SetRegister(6, "Max_Position_Limit", 3500)

	if err := b.ResetCalibration("gripper"); err != nil {
		t.Fatalf("ResetCalibration: %v", err)
	}

	if got := transport.Register(6, "Homing_Offset"); got != 0 {
		t.Errorf("Homing_Offset = %d, want 0", got)
	}
	if got := transport.Register(6, "Min_Position_Limit"); got != 0 {
		t.Errorf("Min_Position_Limit = %d, want 0", got)
	}
	if got := transport.Register(6, "Max_Position_Limit"); got != 4095 {
		t.Errorf("Max_Position_Limit = %d, want 4095", got)
	}

	if _, ok := b.Calibration()["gripper"]; ok {
		t.Error("gripper calibration still active after reset")
	}
	if _, ok := b.Calibration()["wrist_roll"]; !ok {
		t.Error("selective reset dropped another motor's calibration")
	}
}

func TestSetHalfTurnHomings(t *testing.T) {
	b, transport := newArm(t, nil)
	connect(t, b)

	transport.SetActual(1, 3000)
	transport.SetActual(6, 1000)

	offsets, err := b.SetHalfTurnHomings("shoulder_pan", "gripper")
	if err != nil {
		t.Fatalf("SetHalfTurnHomings: %v", err)
	}
	if offsets["shoulder_pan"] != 3000-2048 {
		t.Errorf("shoulder_pan offset = %d, want %d", offsets["shoulder_pan"], 3000-2048)
	}
	if offsets["gripper"] != 1000-2048 {
		t.Errorf("gripper offset = %d, want %d", offsets["gripper"], 1000-2048)
	}

	// After homing, both motors read back centered.
	for _, name := range []string{"shoulder_pan", "gripper"} {
		pos, err := b.Read("Present_Position", name, false, 0)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if pos != 2048 {
			t.Errorf("%s Present_Position = %v after homing, want 2048", name, pos)
		}
	}
}

func TestRecordRangesOfMotion(t *testing.T) {
	b, transport := newArm(t, nil)
	connect(t, b)

	// Sweep every axle across a fixed arc as the recorder polls.
	positions := []int{2000, 1500, 2500, 1200, 2800}
	transport.Motion = func(id, tick int) int {
		return positions[tick%len(positions)]
	}

	ctx, cancel := context.WithCancel(context.Background())
	samples := 0
	mins, maxes, err := b.RecordRangesOfMotion(ctx, []string{"elbow_flex"}, func(s bus.RangeSample) {
		samples++
		if samples >= 10 {
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("RecordRangesOfMotion: %v", err)
	}
	if samples < 10 {
		t.Fatalf("recorded %d samples before stop, want at least 10", samples)
	}
	if mins["elbow_flex"] != 1200 {
		t.Errorf("recorded min = %d, want 1200", mins["elbow_flex"])
	}
	if maxes["elbow_flex"] != 2800 {
		t.Errorf("recorded max = %d, want 2800", maxes["elbow_flex"])
	}
}

func TestReadWriteCalibration(t *testing.T) {
	b, transport := newArm(t, nil)
	connect(t, b)

	cal := bus.CalibrationMap{}
	for i, m := range b.Motors() {
		cal[m.Name] = bus.MotorCalibration{
			ID:           m.ID,
			HomingOffset: 100 * i,
			RangeMin:     800 + i,
			RangeMax:     3300 - i,
		}
	}

	if err := b.WriteCalibration(cal); err != nil {
		t.Fatalf("WriteCalibration: %v", err)
	}
	if got := transport.Register(2, "Min_Position_Limit"); got != 801 {
		t.Errorf("Min_Position_Limit on id 2 = %d, want 801", got)
	}

	got, err := b.ReadCalibration()
	if err != nil {
		t.Fatalf("ReadCalibration: %v", err)
	}
	for name, want := range cal {
		if got[name] != want {
			t.Errorf("ReadCalibration[%q] = %+v, want %+v", name, got[name], want)
		}
	}

	// The bus now applies the calibration it adopted.
	ok, err := b.IsCalibrated()
	if err != nil {
		t.Fatalf("IsCalibrated: %v", err)
	}
	if !ok {
		t.Error("IsCalibrated = false after WriteCalibration")
	}

	// Tampering with a motor's stored limits must show up.
	transport.SetRegister(5, "Max_Position_Limit", 2222)
	ok, err = b.IsCalibrated()
	if err != nil {
		t.Fatalf("IsCalibrated: %v", err)
	}
	if ok {
		t.Error("IsCalibrated = true after device-side tampering")
	}
}

func TestWriteCalibration_RejectsUnknownMotor(t *testing.T) {
	b, _ := newArm(t, nil)
	connect(t, b)

	err := b.WriteCalibration(bus.CalibrationMap{
		"ghost": {ID: 42, RangeMin: 0, RangeMax: 4095},
	})
	if err == nil {
		t.Fatal("WriteCalibration accepted an unknown motor")
	}

	err = b.WriteCalibration(bus.CalibrationMap{
		"gripper": {ID: 3, RangeMin: 0, RangeMax: 4095}, // id belongs to elbow_flex
	})
	if err == nil {
		t.Fatal("WriteCalibration accepted a mismatched id")
	}
}

func TestIsCalibrated_MissingEntry(t *testing.T) {
	b, _ := newArm(t, nil)
	connect(t, b)

	ok, err := b.IsCalibrated()
	if err != nil {
		t.Fatalf("IsCalibrated: %v", err)
	}
	if ok {
		t.Error("IsCalibrated = true with no calibration at all")
	}
}

func TestCalibrationFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")

	cal := fullRangeCalibration()
	if err := cal.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := bus.LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if len(loaded) != len(cal) {
		t.Fatalf("loaded %d entries, want %d", len(loaded), len(cal))
	}
	for name, want := range cal {
		if loaded[name] != want {
			t.Errorf("loaded[%q] = %+v, want %+v", name, loaded[name], want)
		}
	}

	if _, err := bus.LoadCalibration(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadCalibration of a missing file succeeded")
	}
}
