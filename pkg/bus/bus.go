// Package bus talks to daisy-chained serial servo motors through a single
// half-duplex port. It layers name-based addressing, calibration-aware value
// normalization and whole-transaction retries on top of a vendor Transport,
// so callers think in motor names and physical units instead of register
// addresses and raw ticks.
package bus

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Config assembles a Bus. Motors lists the chain in canonical order; their
// names key every map-based result the bus returns.
type Config struct {
	Family    *Family
	Transport Transport
	Motors    []Motor

	// Calibration may be nil; normalized reads and writes then fail with
	// ErrNotCalibrated until calibration is written or recorded.
	Calibration CalibrationMap
}

// Bus orchestrates all traffic to one chain of motors. All exported methods
// are safe for concurrent use; the bus serializes them, matching the
// half-duplex wire underneath.
type Bus struct {
	mu        sync.Mutex
	family    *Family
	transport Transport
	motors    []Motor
	cal       CalibrationMap
	connected bool

	byName        map[string]Motor
	byID          map[int]Motor
	modelByNumber map[int]string

	// sameTables is true when every configured model shares an identical
	// control table, letting group operations skip the per-register
	// address agreement check.
	sameTables bool
}

// New validates the configuration and builds a disconnected bus.
func New(cfg Config) (*Bus, error) {
	if cfg.Family == nil {
		return nil, fmt.Errorf("bus config: family is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("bus config: transport is required")
	}
	if len(cfg.Motors) == 0 {
		return nil, fmt.Errorf("bus config: no motors configured")
	}

	b := &Bus{
		family:    cfg.Family,
		transport: cfg.Transport,
		motors:    append([]Motor(nil), cfg.Motors...),
		cal:       CalibrationMap{},
		byName:    make(map[string]Motor, len(cfg.Motors)),
		byID:      make(map[int]Motor, len(cfg.Motors)),
	}

	for _, m := range b.motors {
		if m.Name == "" {
			return nil, fmt.Errorf("motor id %d has no name", m.ID)
		}
		if m.ID < 1 || m.ID > MaxID {
			return nil, fmt.Errorf("motor %q: id %d outside 1..%d: %w", m.Name, m.ID, MaxID, ErrValueRange)
		}
		if _, ok := b.byName[m.Name]; ok {
			return nil, fmt.Errorf("motor name %q used twice", m.Name)
		}
		if prev, ok := b.byID[m.ID]; ok {
			return nil, fmt.Errorf("motors %q and %q: id %d: %w", prev.Name, m.Name, m.ID, ErrDuplicateID)
		}
		if _, err := cfg.Family.Table(m.Model); err != nil {
			return nil, fmt.Errorf("motor %q: %w", m.Name, err)
		}
		b.byName[m.Name] = m
		b.byID[m.ID] = m
	}

	b.modelByNumber = make(map[int]string, len(cfg.Family.ModelNumbers))
	for model, number := range cfg.Family.ModelNumbers {
		b.modelByNumber[number] = model
	}

	b.sameTables = b.allTablesEqual()

	for name, cal := range cfg.Calibration {
		if _, ok := b.byName[name]; !ok {
			return nil, fmt.Errorf("calibration for unknown motor %q: %w", name, ErrNotFound)
		}
		b.cal[name] = cal
	}

	return b, nil
}

func (b *Bus) allTablesEqual() bool {
	var first ControlTable
	for _, m := range b.motors {
		table := b.family.Tables[m.Model]
		if first == nil {
			first = table
			continue
		}
		if !tablesEqual(first, table) {
			return false
		}
	}
	return true
}

// Motors returns the configured motors in canonical order.
func (b *Bus) Motors() []Motor {
	return append([]Motor(nil), b.motors...)
}

// MotorNames returns the configured motor names in canonical order.
func (b *Bus) MotorNames() []string {
	names := make([]string, len(b.motors))
	for i, m := range b.motors {
		names[i] = m.Name
	}
	return names
}

// Motor looks up a configured motor by name.
func (b *Bus) Motor(name string) (Motor, error) {
	m, ok := b.byName[name]
	if !ok {
		return Motor{}, fmt.Errorf("motor %q: %w", name, ErrNotFound)
	}
	return m, nil
}

// Connect opens the port and, when verify is set, checks that every
// configured motor answers on the wire before reporting success.
func (b *Bus) Connect(verify bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return ErrAlreadyConnected
	}
	if err := b.transport.Open(); err != nil {
		return fmt.Errorf("open port: %w", err)
	}
	b.transport.SetPacketTimeout(b.family.DefaultTimeout)
	b.connected = true

	if verify {
		if err := b.verifyMotors(); err != nil {
			b.connected = false
			b.transport.Close()
			return err
		}
	}
	return nil
}

// Disconnect closes the port. Disconnecting an already-disconnected bus is
// an error, matching the connect side.
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected {
		return ErrNotConnected
	}
	b.connected = false
	if err := b.transport.Close(); err != nil {
		return fmt.Errorf("close port: %w", err)
	}
	return nil
}

// IsConnected reports whether Connect succeeded and Disconnect has not been
// called since.
func (b *Bus) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// verifyMotors broadcast-pings the chain and compares the responders with
// the configured motors. Caller holds b.mu.
func (b *Bus) verifyMotors() error {
	found, err := b.broadcastPing(defaultRetries)
	if err != nil {
		return err
	}

	var missing, unexpected []string
	for _, m := range b.motors {
		model, ok := found[m.ID]
		if !ok {
			missing = append(missing, fmt.Sprintf("%s (id %d)", m.Name, m.ID))
			continue
		}
		if want, known := b.family.ModelNumbers[m.Model]; known && model != want {
			missing = append(missing,
				fmt.Sprintf("%s (id %d): model number %d, expected %d (%s)", m.Name, m.ID, model, want, m.Model))
		}
	}
	for id, number := range found {
		if _, ok := b.byID[id]; !ok {
			if model, known := b.modelByNumber[number]; known {
				unexpected = append(unexpected, fmt.Sprintf("id %d (%s)", id, model))
			} else {
				unexpected = append(unexpected, fmt.Sprintf("id %d (model number %d)", id, number))
			}
		}
	}
	sort.Strings(unexpected)

	if len(missing) > 0 || len(unexpected) > 0 {
		parts := []string{}
		if len(missing) > 0 {
			parts = append(parts, "missing or wrong model: "+strings.Join(missing, ", "))
		}
		if len(unexpected) > 0 {
			parts = append(parts, "unexpected responders: "+strings.Join(unexpected, ", "))
		}
		return fmt.Errorf("motor verification failed: %s", strings.Join(parts, "; "))
	}
	return nil
}

// defaultRetries is the extra-attempt budget used by operations that do not
// take an explicit retry count.
const defaultRetries = 2

// Ping checks a single motor and returns the model number it reports.
// retries is the number of extra attempts after the first.
func (b *Bus) Ping(motor string, retries int) (int, error) {
	m, err := b.Motor(motor)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, ErrNotConnected
	}

	var (
		model   int
		comm    CommStatus
		errCode int
	)
	for attempt := 0; attempt <= retries; attempt++ {
		model, comm, errCode = b.transport.Ping(m.ID)
		if comm.OK() {
			break
		}
	}
	if !comm.OK() {
		return 0, &CommError{Op: "ping", Attempts: retries + 1, Status: comm, Detail: b.transport.CommText(comm)}
	}
	if errCode != 0 {
		return 0, &DeviceError{Op: "ping", ID: m.ID, Code: errCode, Detail: b.transport.ErrorText(errCode)}
	}
	return model, nil
}

// BroadcastPing discovers every responding motor, configured or not, and
// returns id -> model number.
func (b *Bus) BroadcastPing(retries int) (map[int]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}
	return b.broadcastPing(retries)
}

func (b *Bus) broadcastPing(retries int) (map[int]int, error) {
	var (
		found map[int]int
		comm  CommStatus
	)
	for attempt := 0; attempt <= retries; attempt++ {
		found, comm = b.transport.BroadcastPing()
		if comm.OK() {
			return found, nil
		}
	}
	return nil, &CommError{Op: "broadcast ping", Attempts: retries + 1, Status: comm, Detail: b.transport.CommText(comm)}
}

// register resolves name across the given motors, enforcing address
// agreement when the chain mixes models with diverging tables.
func (b *Bus) register(name string, motors []Motor) (Register, error) {
	if b.sameTables {
		return b.family.Lookup(motors[0].Model, name)
	}
	models := make([]string, len(motors))
	for i, m := range motors {
		models[i] = m.Model
	}
	return b.family.SameAddress(models, name)
}

func (b *Bus) resolveMotors(names []string) ([]Motor, error) {
	if len(names) == 0 {
		return b.motors, nil
	}
	motors := make([]Motor, len(names))
	for i, name := range names {
		m, err := b.Motor(name)
		if err != nil {
			return nil, err
		}
		motors[i] = m
	}
	return motors, nil
}

func (b *Bus) calibrationFor(m Motor) (MotorCalibration, error) {
	cal, ok := b.cal[m.Name]
	if !ok {
		return MotorCalibration{}, fmt.Errorf("motor %q: %w", m.Name, ErrNotCalibrated)
	}
	return cal, nil
}

// fromRaw converts one raw register word to the caller-facing value: vendor
// sign decoding always applies, normalization only when requested and the
// register is calibration-scoped.
func (b *Bus) fromRaw(m Motor, name string, reg Register, raw int, normalize bool) (float64, error) {
	value := b.family.decode(name, reg.Length, raw)
	if !normalize || !b.family.IsNormalized(name) {
		return float64(value), nil
	}
	cal, err := b.calibrationFor(m)
	if err != nil {
		return 0, err
	}
	return normalizeValue(m.NormMode, cal, value)
}

// toRaw is the inverse of fromRaw, ending in little-endian wire bytes.
func (b *Bus) toRaw(m Motor, name string, reg Register, value float64, normalize bool) ([]byte, error) {
	v := int(value)
	if normalize && b.family.IsNormalized(name) {
		cal, err := b.calibrationFor(m)
		if err != nil {
			return nil, err
		}
		v, err = unnormalizeValue(m.NormMode, cal, value)
		if err != nil {
			return nil, err
		}
	}
	encoded, err := b.family.encode(name, reg.Length, v)
	if err != nil {
		return nil, fmt.Errorf("motor %q register %q: %w", m.Name, name, err)
	}
	data, err := SplitValue(encoded, reg.Length)
	if err != nil {
		return nil, fmt.Errorf("motor %q register %q: %w", m.Name, name, err)
	}
	return data, nil
}

// Read reads one register from one motor. With normalize set, registers
// subject to calibration come back in the motor's unit range; everything
// else is returned as the sign-decoded register value.
func (b *Bus) Read(register, motor string, normalize bool, retries int) (float64, error) {
	m, err := b.Motor(motor)
	if err != nil {
		return 0, err
	}
	reg, err := b.family.Lookup(m.Model, register)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return 0, ErrNotConnected
	}

	var (
		raw     int
		comm    CommStatus
		errCode int
	)
	for attempt := 0; attempt <= retries; attempt++ {
		raw, comm, errCode = b.transport.Read(m.ID, reg.Address, reg.Length)
		if comm.OK() {
			break
		}
	}
	if !comm.OK() {
		return 0, &CommError{Op: "read", Name: register, Attempts: retries + 1, Status: comm, Detail: b.transport.CommText(comm)}
	}
	if errCode != 0 {
		return 0, &DeviceError{Op: "read " + register, ID: m.ID, Code: errCode, Detail: b.transport.ErrorText(errCode)}
	}
	return b.fromRaw(m, register, reg, raw, normalize)
}

// Write writes one register on one motor. Device-reported faults surface as
// DeviceError and are never retried; only transactions that failed to round
// trip consume the retry budget.
func (b *Bus) Write(register, motor string, value float64, normalize bool, retries int) error {
	m, err := b.Motor(motor)
	if err != nil {
		return err
	}
	reg, err := b.family.Lookup(m.Model, register)
	if err != nil {
		return err
	}
	data, err := b.toRaw(m, register, reg, value, normalize)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}

	var (
		comm    CommStatus
		errCode int
	)
	for attempt := 0; attempt <= retries; attempt++ {
		comm, errCode = b.transport.Write(m.ID, reg.Address, reg.Length, data)
		if comm.OK() {
			break
		}
	}
	if !comm.OK() {
		return &CommError{Op: "write", Name: register, Attempts: retries + 1, Status: comm, Detail: b.transport.CommText(comm)}
	}
	if errCode != 0 {
		return &DeviceError{Op: "write " + register, ID: m.ID, Code: errCode, Detail: b.transport.ErrorText(errCode)}
	}
	return nil
}

// SyncRead reads one register from several motors in a single group
// transaction. An empty motors list means all configured motors. A motor
// missing from an otherwise successful group response counts as a
// communication failure for the whole transaction.
func (b *Bus) SyncRead(register string, motors []string, normalize bool, retries int) (map[string]float64, error) {
	targets, err := b.resolveMotors(motors)
	if err != nil {
		return nil, err
	}
	reg, err := b.register(register, targets)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(targets))
	for i, m := range targets {
		ids[i] = m.ID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return nil, ErrNotConnected
	}

	var (
		raws    map[int]int
		comm    CommStatus
		missing string
	)
	for attempt := 0; attempt <= retries; attempt++ {
		raws, comm = b.transport.SyncRead(reg.Address, reg.Length, ids)
		if !comm.OK() {
			missing = ""
			continue
		}
		if missing = missingIDs(targets, raws); missing != "" {
			comm = CommRxTimeout
			raws = nil
			continue
		}
		break
	}
	if !comm.OK() {
		detail := b.transport.CommText(comm)
		if missing != "" {
			detail = "no response from " + missing
		}
		return nil, &CommError{Op: "sync read", Name: register, Attempts: retries + 1, Status: comm, Detail: detail}
	}

	out := make(map[string]float64, len(targets))
	for _, m := range targets {
		v, err := b.fromRaw(m, register, reg, raws[m.ID], normalize)
		if err != nil {
			return nil, err
		}
		out[m.Name] = v
	}
	return out, nil
}

func missingIDs(targets []Motor, raws map[int]int) string {
	var missing []string
	for _, m := range targets {
		if _, ok := raws[m.ID]; !ok {
			missing = append(missing, fmt.Sprintf("%s (id %d)", m.Name, m.ID))
		}
	}
	return strings.Join(missing, ", ")
}

// SyncWrite writes one register on several motors in a single group
// transaction. All values are validated and encoded before anything touches
// the wire, so a bad value for one motor leaves the whole chain untouched.
func (b *Bus) SyncWrite(register string, values map[string]float64, normalize bool, retries int) error {
	// An empty map must not fall through to resolveMotors, whose empty-list
	// default means "all motors": that would command the whole chain with
	// zero values.
	if len(values) == 0 {
		return fmt.Errorf("sync write %q: no values given", register)
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	targets, err := b.resolveMotors(names)
	if err != nil {
		return err
	}
	reg, err := b.register(register, targets)
	if err != nil {
		return err
	}

	data := make(map[int][]byte, len(targets))
	for _, m := range targets {
		raw, err := b.toRaw(m, register, reg, values[m.Name], normalize)
		if err != nil {
			return err
		}
		data[m.ID] = raw
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return ErrNotConnected
	}

	var comm CommStatus
	for attempt := 0; attempt <= retries; attempt++ {
		comm = b.transport.SyncWrite(reg.Address, reg.Length, data)
		if comm.OK() {
			return nil
		}
	}
	return &CommError{Op: "sync write", Name: register, Attempts: retries + 1, Status: comm, Detail: b.transport.CommText(comm)}
}

// SyncWriteAll writes the same value to one register on every configured
// motor.
func (b *Bus) SyncWriteAll(register string, value float64, normalize bool, retries int) error {
	values := make(map[string]float64, len(b.motors))
	for _, m := range b.motors {
		values[m.Name] = value
	}
	return b.SyncWrite(register, values, normalize, retries)
}

// EnableTorque powers the listed motors (all motors when none are given).
func (b *Bus) EnableTorque(motors ...string) error {
	return b.setTorque(1, motors)
}

// DisableTorque releases the listed motors (all motors when none are given).
func (b *Bus) DisableTorque(motors ...string) error {
	return b.setTorque(0, motors)
}

func (b *Bus) setTorque(value float64, motors []string) error {
	targets, err := b.resolveMotors(motors)
	if err != nil {
		return err
	}
	values := make(map[string]float64, len(targets))
	for _, m := range targets {
		values[m.Name] = value
	}
	return b.SyncWrite("Torque_Enable", values, false, defaultRetries)
}

// SetTimeout changes the transport's per-transaction deadline.
func (b *Bus) SetTimeout(timeout time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transport.SetPacketTimeout(timeout)
}

// Baudrate returns the transport's current baud rate.
func (b *Bus) Baudrate() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.transport.BaudRate()
}

// SetBaudrate switches the port speed, rejecting rates the family does not
// support.
func (b *Bus) SetBaudrate(baud int) error {
	supported := false
	for _, rate := range b.family.Baudrates {
		if rate == baud {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("baud rate %d not supported by %s motors: %w", baud, b.family.Name, ErrValueRange)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.transport.SetBaudRate(baud); err != nil {
		return fmt.Errorf("set baud rate: %w", err)
	}
	if got := b.transport.BaudRate(); got != baud {
		return fmt.Errorf("baud rate did not take: port reports %d after setting %d", got, baud)
	}
	return nil
}
