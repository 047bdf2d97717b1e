package serialport

import (
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without a name succeeded")
	}

	p, err := New(Config{Name: "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "/dev/ttyUSB0" {
		t.Errorf("Name() = %q, want /dev/ttyUSB0", p.Name())
	}
	if p.BaudRate() != 1000000 {
		t.Errorf("default baud = %d, want 1000000", p.BaudRate())
	}

	p, err = New(Config{Name: "/dev/ttyUSB0", BaudRate: 115200, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.BaudRate() != 115200 {
		t.Errorf("baud = %d, want 115200", p.BaudRate())
	}
}

func TestUnopenedPort(t *testing.T) {
	p, err := New(Config{Name: "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Closing a port that was never opened is fine.
	if err := p.Close(); err != nil {
		t.Errorf("Close on unopened port: %v", err)
	}

	// Speed and timeout changes are deferred until Open.
	if err := p.SetBaudRate(57600); err != nil {
		t.Errorf("SetBaudRate on unopened port: %v", err)
	}
	if p.BaudRate() != 57600 {
		t.Errorf("baud = %d, want 57600", p.BaudRate())
	}
	if err := p.SetTimeout(10 * time.Millisecond); err != nil {
		t.Errorf("SetTimeout on unopened port: %v", err)
	}

	// I/O needs an open device.
	if err := p.Clear(); err == nil || !strings.Contains(err.Error(), "not open") {
		t.Errorf("Clear on unopened port = %v", err)
	}
	if _, err := p.Read(make([]byte, 8)); err == nil || !strings.Contains(err.Error(), "not open") {
		t.Errorf("Read on unopened port = %v", err)
	}
	if _, err := p.Write([]byte{0xff}); err == nil || !strings.Contains(err.Error(), "not open") {
		t.Errorf("Write on unopened port = %v", err)
	}
}
