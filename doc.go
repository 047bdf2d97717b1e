// Package motorbus talks to daisy-chained serial servo motors, the kind
// found in hobby robot arms like the SO-101. It abstracts the wire protocol
// behind a transport interface and gives callers name-based, unit-scaled
// access to every motor register.
//
// # Installation
//
//	go install github.com/gwillem/motorbus/cmd/motorbus@latest
//
// # Usage
//
// Scan a port for motors:
//
//	motorbus scan --port /dev/ttyUSB0
//
// Calibrate an arm and watch it move:
//
//	motorbus calibrate
//	motorbus monitor
//
// # Packages
//
// The module is organized into the following packages:
//
//   - pkg/bus: the core orchestrator (addressing, retries, calibration,
//     normalization)
//   - pkg/feetech, pkg/dynamixel: per-vendor control tables and value
//     conventions
//   - pkg/sim: simulated motor chain for tests and demos
//   - pkg/serialport: byte-level serial port handling
//   - pkg/arm: SO-101 arm layout on top of the bus
//   - pkg/teleop: leader/follower teleoperation controller
//   - cmd/motorbus: CLI with scan, calibrate, monitor and teleoperate
package motorbus
