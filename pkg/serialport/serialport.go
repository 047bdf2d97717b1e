// Package serialport wraps a hardware serial port in the lifecycle a motor
// bus transport needs: open, close, baud switching, per-read deadlines and
// input flushing. Vendor transports layer their packet framing on top of a
// Port; this package stays byte-level.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Config holds the settings used when opening a port.
type Config struct {
	Name     string
	BaudRate int
	Timeout  time.Duration
}

// Port is a half-duplex serial port with deferred opening, so a transport
// can be constructed before the hardware is plugged in.
type Port struct {
	name    string
	baud    int
	timeout time.Duration
	port    serial.Port
}

// New builds an unopened port.
func New(cfg Config) (*Port, error) {
	if cfg.Name == "" {
		return nil, errors.New("serial port name is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 1000000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}
	return &Port{name: cfg.Name, baud: cfg.BaudRate, timeout: cfg.Timeout}, nil
}

// Name returns the device path the port was configured with.
func (p *Port) Name() string { return p.name }

// Open opens the device. Servo buses run 8N1 regardless of speed.
func (p *Port) Open() error {
	if p.port != nil {
		return fmt.Errorf("port %s already open", p.name)
	}
	mode := &serial.Mode{
		BaudRate: p.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(p.name, mode)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.name, err)
	}
	if err := port.SetReadTimeout(p.timeout); err != nil {
		port.Close()
		return fmt.Errorf("set read timeout on %s: %w", p.name, err)
	}
	p.port = port
	return nil
}

// Close closes the device. Closing an unopened port is a no-op.
func (p *Port) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Clear drops any stale bytes sitting in the input buffer.
func (p *Port) Clear() error {
	if p.port == nil {
		return errors.New("port not open")
	}
	return p.port.ResetInputBuffer()
}

// BaudRate returns the currently configured speed.
func (p *Port) BaudRate() int { return p.baud }

// SetBaudRate reconfigures the port speed, immediately when open.
func (p *Port) SetBaudRate(baud int) error {
	p.baud = baud
	if p.port == nil {
		return nil
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if err := p.port.SetMode(mode); err != nil {
		return fmt.Errorf("set baud rate on %s: %w", p.name, err)
	}
	return nil
}

// SetTimeout bounds each subsequent Read call.
func (p *Port) SetTimeout(timeout time.Duration) error {
	p.timeout = timeout
	if p.port == nil {
		return nil
	}
	return p.port.SetReadTimeout(timeout)
}

// Read reads up to len(buf) bytes, returning within the configured timeout.
func (p *Port) Read(buf []byte) (int, error) {
	if p.port == nil {
		return 0, errors.New("port not open")
	}
	return p.port.Read(buf)
}

// Write writes buf to the device.
func (p *Port) Write(buf []byte) (int, error) {
	if p.port == nil {
		return 0, errors.New("port not open")
	}
	return p.port.Write(buf)
}

// List returns the serial device paths present on the system, skipping the
// pseudo-devices macOS exposes for Bluetooth.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	out := ports[:0]
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}
