// Package dynamixel carries the static model data for Dynamixel X-series
// servos. Signed registers use plain two's complement, unlike the Feetech
// sign-magnitude scheme.
package dynamixel

import (
	"fmt"
	"time"

	"github.com/gwillem/motorbus/pkg/bus"
)

// Baudrates supported by X-series servos.
var Baudrates = []int{9600, 57600, 115200, 1000000, 2000000, 3000000, 4000000}

// xTable is the X-series control table. All X models share it.
var xTable = bus.ControlTable{
	"Model_Number":        {Address: 0, Length: 2},
	"ID":                  {Address: 7, Length: 1},
	"Baud_Rate":           {Address: 8, Length: 1},
	"Drive_Mode":          {Address: 10, Length: 1},
	"Operating_Mode":      {Address: 11, Length: 1},
	"Homing_Offset":       {Address: 20, Length: 4},
	"Temperature_Limit":   {Address: 31, Length: 1},
	"Max_Position_Limit":  {Address: 48, Length: 4},
	"Min_Position_Limit":  {Address: 52, Length: 4},
	"Torque_Enable":       {Address: 64, Length: 1},
	"Goal_Velocity":       {Address: 104, Length: 4},
	"Goal_Position":       {Address: 116, Length: 4},
	"Moving":              {Address: 122, Length: 1},
	"Present_Load":        {Address: 126, Length: 2},
	"Present_Velocity":    {Address: 128, Length: 4},
	"Present_Position":    {Address: 132, Length: 4},
	"Present_Voltage":     {Address: 144, Length: 2},
	"Present_Temperature": {Address: 146, Length: 1},
}

// signed lists the registers that carry two's complement values.
var signed = map[string]bool{
	"Homing_Offset":    true,
	"Goal_Velocity":    true,
	"Present_Velocity": true,
	"Present_Load":     true,
}

// Codec implements the two's complement convention.
type Codec struct{}

func (Codec) Encode(name string, length, value int) (int, error) {
	if !signed[name] {
		return value, nil
	}
	bits := 8 * length
	min, max := -(1 << (bits - 1)), 1<<(bits-1)-1
	if value < min || value > max {
		return 0, fmt.Errorf("%s value %d outside %d-bit signed range: %w", name, value, bits, bus.ErrValueRange)
	}
	if value < 0 {
		return value + 1<<bits, nil
	}
	return value, nil
}

func (Codec) Decode(name string, length, raw int) int {
	if !signed[name] {
		return raw
	}
	bits := 8 * length
	if raw >= 1<<(bits-1) {
		return raw - 1<<bits
	}
	return raw
}

// Family describes the Dynamixel X-series family.
var Family = &bus.Family{
	Name:           "dynamixel",
	Baudrates:      Baudrates,
	DefaultTimeout: 100 * time.Millisecond,
	Tables: map[string]bus.ControlTable{
		"xl330-m077": xTable,
		"xl330-m288": xTable,
		"xl430-w250": xTable,
		"xm430-w350": xTable,
		"xm540-w270": xTable,
	},
	ModelNumbers: map[string]int{
		"xl330-m077": 1190,
		"xl330-m288": 1200,
		"xl430-w250": 1060,
		"xm430-w350": 1020,
		"xm540-w270": 1120,
	},
	Resolutions: map[string]int{
		"xl330-m077": 4096,
		"xl330-m288": 4096,
		"xl430-w250": 4096,
		"xm430-w350": 4096,
		"xm540-w270": 4096,
	},
	Normalized: []string{"Goal_Position", "Present_Position"},
	Codec:      Codec{},
}
