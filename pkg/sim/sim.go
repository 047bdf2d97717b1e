// Package sim provides an in-memory Transport that behaves like a chain of
// servos on a serial port. It is deterministic and needs no hardware, which
// makes it the test double for the bus package and the default port for the
// command line tools.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/motorbus/pkg/bus"
)

const memSize = 180 // covers every register address of both families

type servo struct {
	model  string
	table  bus.ControlTable
	mem    [memSize]byte
	actual  int // true axle position in ticks, before homing
	errCode int
	silent  bool
}

// Transport simulates a chain of motors. The zero value is not usable; use
// New.
type Transport struct {
	mu     sync.Mutex
	family *bus.Family
	servos map[int]*servo
	open   bool
	baud   int

	failNext int
	tick     int

	// activeBaud, when non-zero, makes the chain answer only at that baud
	// rate, the way real servos go quiet when the port speed is wrong.
	activeBaud int

	// Motion, if set, drives each servo's axle position as a function of
	// the transaction counter. Used by the demo tooling to animate reads.
	Motion func(id, tick int) int
}

// New builds a simulated chain with one servo per id, each of the given
// model. Position limits start at the full encoder range and the model
// number register is pre-filled.
func New(family *bus.Family, motors map[int]string) (*Transport, error) {
	t := &Transport{
		family: family,
		servos: make(map[int]*servo, len(motors)),
		baud:   family.Baudrates[0],
	}
	for id, model := range motors {
		table, err := family.Table(model)
		if err != nil {
			return nil, err
		}
		s := &servo{model: model, table: table}
		res := family.Resolutions[model]
		s.actual = res / 2

		s.poke("Model_Number", family.ModelNumbers[model])
		s.poke("ID", id)
		s.poke("Max_Position_Limit", res-1)
		t.servos[id] = s
	}
	return t, nil
}

// poke writes a raw value straight into register memory, ignoring hooks.
func (s *servo) poke(name string, value int) {
	reg, ok := s.table[name]
	if !ok {
		return
	}
	for i := 0; i < reg.Length; i++ {
		s.mem[reg.Address+i] = byte(value >> (8 * i))
	}
}

func (s *servo) peek(name string) int {
	reg, ok := s.table[name]
	if !ok {
		return 0
	}
	value := 0
	for i := 0; i < reg.Length; i++ {
		value |= int(s.mem[reg.Address+i]) << (8 * i)
	}
	return value
}

// regName finds the register a window addresses, if it is an exact match.
func (s *servo) regName(address, length int) string {
	for name, reg := range s.table {
		if reg.Address == address && reg.Length == length {
			return name
		}
	}
	return ""
}

func (s *servo) homing(f *bus.Family) int {
	reg, ok := s.table["Homing_Offset"]
	if !ok {
		return 0
	}
	raw := s.peek("Homing_Offset")
	if f.Codec == nil {
		return raw
	}
	return f.Codec.Decode("Homing_Offset", reg.Length, raw)
}

// FailNext makes the next n transactions fail with a receive timeout,
// whatever they are. Each failed transaction consumes one.
func (t *Transport) FailNext(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failNext = n
}

// SetDeviceError makes servo id report the given hardware error code on
// every subsequent addressed transaction. Zero clears it.
func (t *Transport) SetDeviceError(id, code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.servos[id]; ok {
		s.errCode = code
	}
}

// Detach silences servo id: it stops answering pings, reads and group
// transactions, as if unplugged mid-chain.
func (t *Transport) Detach(id int) { t.setSilent(id, true) }

// Attach reverses Detach.
func (t *Transport) Attach(id int) { t.setSilent(id, false) }

func (t *Transport) setSilent(id int, silent bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.servos[id]; ok {
		s.silent = silent
	}
}

// SetActual places servo id's axle at the given tick position directly,
// bypassing goal tracking.
func (t *Transport) SetActual(id, position int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.servos[id]; ok {
		s.actual = position
	}
}

// Register reads a register's raw value straight from simulated memory.
func (t *Transport) Register(id int, name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.servos[id]; ok {
		return s.peek(name)
	}
	return 0
}

// SetRegister writes a register's raw value straight into simulated memory,
// without triggering goal-position tracking.
func (t *Transport) SetRegister(id int, name string, value int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.servos[id]; ok {
		s.poke(name, value)
	}
}

// SetActiveBaud restricts the chain to answering at one baud rate only.
// Zero removes the restriction.
func (t *Transport) SetActiveBaud(baud int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeBaud = baud
}

// fault consumes one injected failure if armed, and silences the chain when
// the port speed does not match. Caller holds t.mu.
func (t *Transport) fault() bool {
	if t.failNext > 0 {
		t.failNext--
		return true
	}
	return t.activeBaud != 0 && t.baud != t.activeBaud
}

func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		return fmt.Errorf("sim port already open")
	}
	t.open = true
	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	return nil
}

func (t *Transport) Clear() error { return nil }

func (t *Transport) BaudRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baud
}

func (t *Transport) SetBaudRate(baud int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baud = baud
	return nil
}

func (t *Transport) SetPacketTimeout(timeout time.Duration) {}

func (t *Transport) Ping(id int) (int, bus.CommStatus, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return 0, bus.CommRxTimeout, 0
	}
	s, ok := t.servos[id]
	if !ok || s.silent {
		return 0, bus.CommRxTimeout, 0
	}
	return s.peek("Model_Number"), bus.CommSuccess, s.errCode
}

func (t *Transport) BroadcastPing() (map[int]int, bus.CommStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return nil, bus.CommRxTimeout
	}
	found := make(map[int]int)
	for id, s := range t.servos {
		if s.silent {
			continue
		}
		found[id] = s.peek("Model_Number")
	}
	return found, bus.CommSuccess
}

func (t *Transport) Read(id, address, length int) (int, bus.CommStatus, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return 0, bus.CommRxTimeout, 0
	}
	s, ok := t.servos[id]
	if !ok || s.silent {
		return 0, bus.CommRxTimeout, 0
	}
	return t.read(id, s, address, length), bus.CommSuccess, s.errCode
}

func (t *Transport) Write(id, address, length int, data []byte) (bus.CommStatus, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return bus.CommRxTimeout, 0
	}
	s, ok := t.servos[id]
	if !ok || s.silent {
		return bus.CommRxTimeout, 0
	}
	t.write(s, address, length, data)
	return bus.CommSuccess, s.errCode
}

func (t *Transport) SyncRead(address, length int, ids []int) (map[int]int, bus.CommStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return nil, bus.CommRxTimeout
	}
	t.tick++
	out := make(map[int]int, len(ids))
	for _, id := range ids {
		s, ok := t.servos[id]
		if !ok || s.silent {
			continue
		}
		out[id] = t.read(id, s, address, length)
	}
	return out, bus.CommSuccess
}

func (t *Transport) SyncWrite(address, length int, data map[int][]byte) bus.CommStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fault() {
		return bus.CommRxTimeout
	}
	for id, bytes := range data {
		s, ok := t.servos[id]
		if !ok || s.silent {
			continue
		}
		t.write(s, address, length, bytes)
	}
	return bus.CommSuccess
}

// read serves a register window, computing Present_Position from the axle
// position and homing offset the way real firmware does.
func (t *Transport) read(id int, s *servo, address, length int) int {
	if s.regName(address, length) == "Present_Position" {
		if t.Motion != nil {
			s.actual = t.Motion(id, t.tick)
		}
		res := t.family.Resolutions[s.model]
		present := s.actual - s.homing(t.family)
		if present < 0 {
			present = 0
		}
		if present > res-1 {
			present = res - 1
		}
		s.poke("Present_Position", present)
		return present
	}

	value := 0
	for i := 0; i < length; i++ {
		value |= int(s.mem[address+i]) << (8 * i)
	}
	return value
}

// write commits a register window, tracking goal position: the axle snaps
// to the goal immediately, shifted by the homing offset.
func (t *Transport) write(s *servo, address, length int, data []byte) {
	for i := 0; i < length && i < len(data); i++ {
		s.mem[address+i] = data[i]
	}
	if s.regName(address, length) == "Goal_Position" {
		goal := s.peek("Goal_Position")
		s.actual = goal + s.homing(t.family)
	}
}

func (t *Transport) CommText(comm bus.CommStatus) string {
	switch comm {
	case bus.CommSuccess:
		return "success"
	case bus.CommPortBusy:
		return "port busy"
	case bus.CommTxFail:
		return "transmit failed"
	case bus.CommRxFail:
		return "receive failed"
	case bus.CommTxError:
		return "malformed instruction"
	case bus.CommRxWaiting:
		return "receiving"
	case bus.CommRxTimeout:
		return "no response within timeout"
	case bus.CommRxCorrupt:
		return "corrupt response"
	case bus.CommNotAvail:
		return "not available"
	default:
		return fmt.Sprintf("comm status %d", int(comm))
	}
}

func (t *Transport) ErrorText(errCode int) string {
	if errCode == 0 {
		return "no error"
	}
	return fmt.Sprintf("hardware error 0x%02x", errCode)
}
