package bus

import (
	"fmt"
	"time"
)

// Register locates one named parameter in a motor's register space.
type Register struct {
	Address int
	Length  int // 1, 2 or 4 bytes
}

// ControlTable maps parameter names to their registers for one motor model.
// Table data is static vendor material and is never mutated at runtime.
type ControlTable map[string]Register

// ValueCodec applies a vendor's value-level bit conventions, e.g. the
// sign-magnitude encoding Feetech uses for Homing_Offset or the two's
// complement Dynamixel uses for signed registers. Implementations are pure
// bit transforms keyed by register name; names without a convention pass
// through unchanged.
type ValueCodec interface {
	Encode(name string, length, value int) (int, error)
	Decode(name string, length, raw int) int
}

// Family describes one vendor family of motor models: its control tables,
// identification data and value conventions. A Bus composes a Family with a
// Transport; the family contributes the static knowledge the original vendor
// SDKs bake into subclasses.
type Family struct {
	Name           string
	Baudrates      []int
	DefaultTimeout time.Duration

	Tables       map[string]ControlTable // model -> control table
	ModelNumbers map[string]int          // model -> number reported by ping
	Resolutions  map[string]int          // model -> encoder steps per turn

	// Normalized lists the register names whose values are subject to
	// calibration-based normalization.
	Normalized []string

	// Codec is optional; nil means values carry no vendor bit convention.
	Codec ValueCodec

	// HalfTurnHoming computes the homing offset that recenters a motor whose
	// raw position is present. Nil selects the common present - resolution/2.
	HalfTurnHoming func(present, resolution int) int
}

// Table returns the control table for model.
func (f *Family) Table(model string) (ControlTable, error) {
	table, ok := f.Tables[model]
	if !ok {
		return nil, fmt.Errorf("control table for model %q: %w", model, ErrNotFound)
	}
	return table, nil
}

// Lookup resolves a register name for a given model.
func (f *Family) Lookup(model, name string) (Register, error) {
	table, err := f.Table(model)
	if err != nil {
		return Register{}, err
	}
	reg, ok := table[name]
	if !ok {
		return Register{}, fmt.Errorf("register %q in %s control table: %w", name, model, ErrNotFound)
	}
	return reg, nil
}

// SameAddress resolves name across all given models and fails unless every
// model places it at the same address with the same width. Group operations
// assume a single register window for all participants; this is the guard.
func (f *Family) SameAddress(models []string, name string) (Register, error) {
	var reg Register
	for i, model := range models {
		r, err := f.Lookup(model, name)
		if err != nil {
			return Register{}, err
		}
		if i == 0 {
			reg = r
			continue
		}
		if r != reg {
			return Register{}, fmt.Errorf(
				"register %q: %s has (addr=%d len=%d), %s has (addr=%d len=%d): %w",
				name, models[0], reg.Address, reg.Length, model, r.Address, r.Length,
				ErrAddressMismatch)
		}
	}
	return reg, nil
}

// IsNormalized reports whether name requires calibration-based normalization.
func (f *Family) IsNormalized(name string) bool {
	for _, n := range f.Normalized {
		if n == name {
			return true
		}
	}
	return false
}

func (f *Family) encode(name string, length, value int) (int, error) {
	if f.Codec == nil {
		return value, nil
	}
	return f.Codec.Encode(name, length, value)
}

func (f *Family) decode(name string, length, raw int) int {
	if f.Codec == nil {
		return raw
	}
	return f.Codec.Decode(name, length, raw)
}

func (f *Family) halfTurnHoming(present, resolution int) int {
	if f.HalfTurnHoming != nil {
		return f.HalfTurnHoming(present, resolution)
	}
	return present - resolution/2
}

// tablesEqual reports whether two control tables are identical.
func tablesEqual(a, b ControlTable) bool {
	if len(a) != len(b) {
		return false
	}
	for name, reg := range a {
		if other, ok := b[name]; !ok || other != reg {
			return false
		}
	}
	return true
}
