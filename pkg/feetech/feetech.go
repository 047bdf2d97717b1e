// Package feetech carries the static model data for Feetech serial servos:
// control tables, model numbers, encoder resolutions and the sign-magnitude
// value convention the STS/SCS firmware uses for signed registers.
package feetech

import (
	"fmt"
	"time"

	"github.com/gwillem/motorbus/pkg/bus"
)

// Baudrates supported by Feetech servos, in the firmware's index order.
var Baudrates = []int{1000000, 500000, 250000, 128000, 115200, 76800, 57600, 38400}

// stsTable covers the STS series (sts3215, sts3250).
var stsTable = bus.ControlTable{
	"Model_Number":        {Address: 3, Length: 2},
	"ID":                  {Address: 5, Length: 1},
	"Baud_Rate":           {Address: 6, Length: 1},
	"Min_Position_Limit":  {Address: 9, Length: 2},
	"Max_Position_Limit":  {Address: 11, Length: 2},
	"Homing_Offset":       {Address: 31, Length: 2},
	"Operating_Mode":      {Address: 33, Length: 1},
	"Torque_Enable":       {Address: 40, Length: 1},
	"Acceleration":        {Address: 41, Length: 1},
	"Goal_Position":       {Address: 42, Length: 2},
	"Goal_Velocity":       {Address: 46, Length: 2},
	"Lock":                {Address: 55, Length: 1},
	"Present_Position":    {Address: 56, Length: 2},
	"Present_Velocity":    {Address: 58, Length: 2},
	"Present_Load":        {Address: 60, Length: 2},
	"Present_Voltage":     {Address: 62, Length: 1},
	"Present_Temperature": {Address: 63, Length: 1},
	"Moving":              {Address: 66, Length: 1},
	"Present_Current":     {Address: 69, Length: 2},
}

// scsTable covers the older SCS series (scs0009, scs15), which lacks a
// homing offset register and repurposes a few addresses.
var scsTable = bus.ControlTable{
	"Model_Number":        {Address: 3, Length: 2},
	"ID":                  {Address: 5, Length: 1},
	"Baud_Rate":           {Address: 6, Length: 1},
	"Min_Position_Limit":  {Address: 9, Length: 2},
	"Max_Position_Limit":  {Address: 11, Length: 2},
	"Torque_Enable":       {Address: 40, Length: 1},
	"Goal_Position":       {Address: 42, Length: 2},
	"Running_Time":        {Address: 44, Length: 2},
	"Goal_Velocity":       {Address: 46, Length: 2},
	"Present_Position":    {Address: 56, Length: 2},
	"Present_Velocity":    {Address: 58, Length: 2},
	"Present_Load":        {Address: 60, Length: 2},
	"Present_Voltage":     {Address: 62, Length: 1},
	"Present_Temperature": {Address: 63, Length: 1},
	"Moving":              {Address: 66, Length: 1},
}

// signBits maps signed register names to the bit position that carries the
// sign in the firmware's sign-magnitude representation.
var signBits = map[string]int{
	"Homing_Offset":    11,
	"Goal_Velocity":    15,
	"Present_Velocity": 15,
	"Present_Load":     9,
}

// Codec implements the sign-magnitude convention.
type Codec struct{}

func (Codec) Encode(name string, length, value int) (int, error) {
	bit, ok := signBits[name]
	if !ok {
		return value, nil
	}
	magnitude := value
	if magnitude < 0 {
		magnitude = -magnitude
	}
	if magnitude >= 1<<bit {
		return 0, fmt.Errorf("%s value %d exceeds %d-bit magnitude: %w", name, value, bit, bus.ErrValueRange)
	}
	if value < 0 {
		magnitude |= 1 << bit
	}
	return magnitude, nil
}

func (Codec) Decode(name string, length, raw int) int {
	bit, ok := signBits[name]
	if !ok {
		return raw
	}
	if raw&(1<<bit) != 0 {
		return -(raw &^ (1 << bit))
	}
	return raw
}

// Family describes the Feetech servo family.
var Family = &bus.Family{
	Name:           "feetech",
	Baudrates:      Baudrates,
	DefaultTimeout: 100 * time.Millisecond,
	Tables: map[string]bus.ControlTable{
		"sts3215": stsTable,
		"sts3250": stsTable,
		"scs0009": scsTable,
		"scs15":   scsTable,
	},
	ModelNumbers: map[string]int{
		"sts3215": 777,
		"sts3250": 1540,
		"scs0009": 9,
		"scs15":   15,
	},
	Resolutions: map[string]int{
		"sts3215": 4096,
		"sts3250": 4096,
		"scs0009": 1024,
		"scs15":   1024,
	},
	Normalized: []string{"Goal_Position", "Present_Position"},
	Codec:      Codec{},
}
