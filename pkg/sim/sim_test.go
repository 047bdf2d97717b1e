package sim_test

import (
	"testing"

	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
	"github.com/gwillem/motorbus/pkg/sim"
)

func newChain(t *testing.T) *sim.Transport {
	t.Helper()
	transport, err := sim.New(feetech.Family, map[int]string{1: "sts3215"})
	if err != nil {
		t.Fatal(err)
	}
	if err := transport.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { transport.Close() })
	return transport
}

func reg(name string) bus.Register {
	r, _ := feetech.Family.Lookup("sts3215", name)
	return r
}

func TestPingReportsModelNumber(t *testing.T) {
	transport := newChain(t)

	model, comm, errCode := transport.Ping(1)
	if !comm.OK() || errCode != 0 {
		t.Fatalf("Ping = comm %d errCode %d", comm, errCode)
	}
	if model != 777 {
		t.Errorf("Ping model = %d, want 777", model)
	}

	if _, comm, _ := transport.Ping(99); comm.OK() {
		t.Error("Ping of absent id succeeded")
	}
}

func TestGoalTracksHomingOffset(t *testing.T) {
	transport := newChain(t)
	goal := reg("Goal_Position")
	present := reg("Present_Position")

	// With zero homing, present follows goal exactly.
	data, _ := bus.SplitValue(3000, goal.Length)
	if comm, _ := transport.Write(1, goal.Address, goal.Length, data); !comm.OK() {
		t.Fatal("Write failed")
	}
	pos, comm, _ := transport.Read(1, present.Address, present.Length)
	if !comm.OK() || pos != 3000 {
		t.Fatalf("Present_Position = %d, want 3000", pos)
	}

	// A homing offset shifts the reported position, not the axle.
	transport.SetRegister(1, "Homing_Offset", 500)
	pos, _, _ = transport.Read(1, present.Address, present.Length)
	if pos != 2500 {
		t.Errorf("Present_Position with offset 500 = %d, want 2500", pos)
	}
}

func TestPresentPositionClamps(t *testing.T) {
	transport := newChain(t)
	present := reg("Present_Position")

	transport.SetActual(1, -200)
	pos, _, _ := transport.Read(1, present.Address, present.Length)
	if pos != 0 {
		t.Errorf("Present_Position below range = %d, want 0", pos)
	}

	transport.SetActual(1, 5000)
	pos, _, _ = transport.Read(1, present.Address, present.Length)
	if pos != 4095 {
		t.Errorf("Present_Position above range = %d, want 4095", pos)
	}
}

func TestFailNextConsumesExactly(t *testing.T) {
	transport := newChain(t)

	transport.FailNext(2)
	if _, comm, _ := transport.Ping(1); comm.OK() {
		t.Error("first faulted transaction succeeded")
	}
	if _, comm := transport.BroadcastPing(); comm.OK() {
		t.Error("second faulted transaction succeeded")
	}
	if _, comm, _ := transport.Ping(1); !comm.OK() {
		t.Error("transaction after fault budget still failing")
	}
}

func TestDetachSilencesGroupTransactions(t *testing.T) {
	transport, err := sim.New(feetech.Family, map[int]string{1: "sts3215", 2: "sts3215"})
	if err != nil {
		t.Fatal(err)
	}
	transport.Open()
	defer transport.Close()
	transport.Detach(2)

	found, comm := transport.BroadcastPing()
	if !comm.OK() {
		t.Fatal("BroadcastPing failed")
	}
	if _, ok := found[2]; ok {
		t.Error("detached servo answered broadcast ping")
	}

	present := reg("Present_Position")
	values, comm := transport.SyncRead(present.Address, present.Length, []int{1, 2})
	if !comm.OK() {
		t.Fatal("SyncRead failed")
	}
	if _, ok := values[2]; ok {
		t.Error("detached servo answered sync read")
	}
	if _, ok := values[1]; !ok {
		t.Error("attached servo missing from sync read")
	}
}
