package bus_test

import (
	"testing"

	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
	"github.com/gwillem/motorbus/pkg/sim"
)

func TestScanPort(t *testing.T) {
	transport, err := sim.New(feetech.Family, map[int]string{
		1: "sts3215",
		2: "sts3215",
		3: "scs0009",
	})
	if err != nil {
		t.Fatal(err)
	}
	transport.SetActiveBaud(57600)

	found, err := bus.ScanPort(transport, feetech.Family)
	if err != nil {
		t.Fatalf("ScanPort: %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("motors found at %d baud rates, want 1: %v", len(found), found)
	}
	motors, ok := found[57600]
	if !ok {
		t.Fatal("nothing found at the chain's actual baud rate")
	}
	if len(motors) != 3 {
		t.Fatalf("found %d motors, want 3", len(motors))
	}
	if motors[1] != 777 || motors[2] != 777 || motors[3] != 9 {
		t.Errorf("model numbers = %v, want 777/777/9", motors)
	}
}

func TestScanPort_EmptyChain(t *testing.T) {
	transport, err := sim.New(feetech.Family, nil)
	if err != nil {
		t.Fatal(err)
	}

	found, err := bus.ScanPort(transport, feetech.Family)
	if err != nil {
		t.Fatalf("ScanPort: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("empty chain reported motors: %v", found)
	}
}
