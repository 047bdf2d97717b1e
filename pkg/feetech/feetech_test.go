package feetech

import (
	"errors"
	"testing"

	"github.com/gwillem/motorbus/pkg/bus"
)

func TestCodec_SignMagnitude(t *testing.T) {
	var codec Codec

	tests := []struct {
		name  string
		value int
		raw   int
	}{
		{"Homing_Offset", 0, 0},
		{"Homing_Offset", 500, 500},
		{"Homing_Offset", -500, 500 | 1<<11},
		{"Homing_Offset", -2047, 2047 | 1<<11},
		{"Goal_Velocity", -300, 300 | 1<<15},
		{"Present_Load", -100, 100 | 1<<9},
		{"Goal_Position", 2048, 2048}, // unsigned register passes through
	}

	for _, tt := range tests {
		raw, err := codec.Encode(tt.name, 2, tt.value)
		if err != nil {
			t.Errorf("Encode(%s, %d) error: %v", tt.name, tt.value, err)
			continue
		}
		if raw != tt.raw {
			t.Errorf("Encode(%s, %d) = %#x, want %#x", tt.name, tt.value, raw, tt.raw)
		}
		if back := codec.Decode(tt.name, 2, raw); back != tt.value {
			t.Errorf("Decode(%s, %#x) = %d, want %d", tt.name, raw, back, tt.value)
		}
	}
}

func TestCodec_MagnitudeOverflow(t *testing.T) {
	var codec Codec

	if _, err := codec.Encode("Homing_Offset", 2, -2048); !errors.Is(err, bus.ErrValueRange) {
		t.Errorf("Encode(-2048) = %v, want ErrValueRange", err)
	}
	if _, err := codec.Encode("Homing_Offset", 2, 2048); !errors.Is(err, bus.ErrValueRange) {
		t.Errorf("Encode(2048) = %v, want ErrValueRange", err)
	}
}

func TestFamily_Models(t *testing.T) {
	for model, number := range Family.ModelNumbers {
		if _, err := Family.Table(model); err != nil {
			t.Errorf("model %q has a number (%d) but no control table", model, number)
		}
		if Family.Resolutions[model] == 0 {
			t.Errorf("model %q has no resolution", model)
		}
	}

	if Family.ModelNumbers["sts3215"] != 777 {
		t.Errorf("sts3215 model number = %d, want 777", Family.ModelNumbers["sts3215"])
	}
	if Family.Resolutions["scs0009"] != 1024 {
		t.Errorf("scs0009 resolution = %d, want 1024", Family.Resolutions["scs0009"])
	}
}

func TestFamily_StsScsDivergence(t *testing.T) {
	// The SCS series has no homing offset register; group operations that
	// mix the two series must still agree on the registers both have.
	if _, err := Family.Lookup("scs0009", "Homing_Offset"); err == nil {
		t.Error("scs0009 unexpectedly has Homing_Offset")
	}
	reg, err := Family.SameAddress([]string{"sts3215", "scs0009"}, "Goal_Position")
	if err != nil {
		t.Fatalf("SameAddress(Goal_Position): %v", err)
	}
	if reg.Address != 42 || reg.Length != 2 {
		t.Errorf("Goal_Position = %+v, want {42 2}", reg)
	}
}
