package bus

import "fmt"

// normalizeValue maps a raw register value into the motor's calibrated unit range.
// The raw value is clamped into [RangeMin, RangeMax] first, so a motor that
// drifted slightly past its recorded bounds still yields an in-range result.
func normalizeValue(mode NormMode, cal MotorCalibration, raw int) (float64, error) {
	min, max := cal.RangeMin, cal.RangeMax
	if min == max {
		return 0, fmt.Errorf("%w: calibration range is empty (min == max == %d)", ErrValueRange, min)
	}
	v := clamp(raw, min, max)
	frac := float64(v-min) / float64(max-min)

	switch mode {
	case NormModeRangeM100:
		return frac*200 - 100, nil
	case NormModeRange100:
		return frac * 100, nil
	case NormModeDegrees, NormModeVelocity:
		return 0, fmt.Errorf("%w: %s", ErrNormMode, mode)
	default:
		return 0, fmt.Errorf("%w: %s", ErrNormMode, mode)
	}
}

// unnormalizeValue maps a unit-range value back to raw register ticks. The
// normalized input is clamped into the mode's domain, and the result is
// truncated toward zero to match the forward mapping.
func unnormalizeValue(mode NormMode, cal MotorCalibration, value float64) (int, error) {
	min, max := cal.RangeMin, cal.RangeMax
	if min == max {
		return 0, fmt.Errorf("%w: calibration range is empty (min == max == %d)", ErrValueRange, min)
	}

	var frac float64
	switch mode {
	case NormModeRangeM100:
		v := clampFloat(value, -100, 100)
		frac = (v + 100) / 200
	case NormModeRange100:
		v := clampFloat(value, 0, 100)
		frac = v / 100
	case NormModeDegrees, NormModeVelocity:
		return 0, fmt.Errorf("%w: %s", ErrNormMode, mode)
	default:
		return 0, fmt.Errorf("%w: %s", ErrNormMode, mode)
	}

	return int(frac*float64(max-min)) + min, nil
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
