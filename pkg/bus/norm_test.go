package bus

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizeValue_RangeM100(t *testing.T) {
	cal := MotorCalibration{RangeMin: 0, RangeMax: 4095}

	tests := []struct {
		raw      int
		expected float64
	}{
		{0, -100.0},
		{4095, 100.0},
		{2048, 0.0}, // mid, within rounding
		{1024, -50.0},
		{-500, -100.0}, // clamped below
		{9999, 100.0},  // clamped above
	}

	for _, tt := range tests {
		got, err := normalizeValue(NormModeRangeM100, cal, tt.raw)
		if err != nil {
			t.Errorf("normalizeValue(%d) error: %v", tt.raw, err)
			continue
		}
		if math.Abs(got-tt.expected) > 0.05 {
			t.Errorf("normalizeValue(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestNormalizeValue_Range100(t *testing.T) {
	cal := MotorCalibration{RangeMin: 1000, RangeMax: 3000}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, 0.0},
		{3000, 100.0},
		{2000, 50.0},
		{500, 0.0},    // clamped below
		{4000, 100.0}, // clamped above
	}

	for _, tt := range tests {
		got, err := normalizeValue(NormModeRange100, cal, tt.raw)
		if err != nil {
			t.Errorf("normalizeValue(%d) error: %v", tt.raw, err)
			continue
		}
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("normalizeValue(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestUnnormalizeValue(t *testing.T) {
	cal := MotorCalibration{RangeMin: 1000, RangeMax: 3000}

	tests := []struct {
		mode     NormMode
		value    float64
		expected int
	}{
		{NormModeRangeM100, -100, 1000},
		{NormModeRangeM100, 100, 3000},
		{NormModeRangeM100, 0, 2000},
		{NormModeRangeM100, -150, 1000}, // clamped below
		{NormModeRangeM100, 150, 3000},  // clamped above
		{NormModeRange100, 0, 1000},
		{NormModeRange100, 100, 3000},
		{NormModeRange100, 50, 2000},
		{NormModeRange100, -10, 1000},
		{NormModeRange100, 110, 3000},
	}

	for _, tt := range tests {
		got, err := unnormalizeValue(tt.mode, cal, tt.value)
		if err != nil {
			t.Errorf("unnormalizeValue(%v, %f) error: %v", tt.mode, tt.value, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("unnormalizeValue(%v, %f) = %d, want %d", tt.mode, tt.value, got, tt.expected)
		}
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	cal := MotorCalibration{RangeMin: 823, RangeMax: 3540}

	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 50 {
		norm, err := normalizeValue(NormModeRangeM100, cal, raw)
		if err != nil {
			t.Fatalf("normalizeValue(%d) error: %v", raw, err)
		}
		back, err := unnormalizeValue(NormModeRangeM100, cal, norm)
		if err != nil {
			t.Fatalf("unnormalizeValue(%f) error: %v", norm, err)
		}
		if back < raw-1 || back > raw+1 {
			t.Errorf("round-trip %d -> %f -> %d drifted", raw, norm, back)
		}
	}
}

func TestNormalize_UnimplementedModes(t *testing.T) {
	cal := MotorCalibration{RangeMin: 0, RangeMax: 4095}

	for _, mode := range []NormMode{NormModeDegrees, NormModeVelocity} {
		if _, err := normalizeValue(mode, cal, 100); !errors.Is(err, ErrNormMode) {
			t.Errorf("normalizeValue(%v) = %v, want ErrNormMode", mode, err)
		}
		if _, err := unnormalizeValue(mode, cal, 1); !errors.Is(err, ErrNormMode) {
			t.Errorf("unnormalizeValue(%v) = %v, want ErrNormMode", mode, err)
		}
	}
}

func TestNormalize_EmptyRange(t *testing.T) {
	cal := MotorCalibration{RangeMin: 2048, RangeMax: 2048}

	if _, err := normalizeValue(NormModeRangeM100, cal, 2048); !errors.Is(err, ErrValueRange) {
		t.Errorf("normalizeValue with empty range = %v, want ErrValueRange", err)
	}
	if _, err := unnormalizeValue(NormModeRangeM100, cal, 0); !errors.Is(err, ErrValueRange) {
		t.Errorf("unnormalizeValue with empty range = %v, want ErrValueRange", err)
	}
}
