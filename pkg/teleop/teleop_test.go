package teleop_test

import (
	"context"
	"testing"
	"time"

	"github.com/gwillem/motorbus/pkg/arm"
	"github.com/gwillem/motorbus/pkg/bus"
	"github.com/gwillem/motorbus/pkg/feetech"
	"github.com/gwillem/motorbus/pkg/sim"
	"github.com/gwillem/motorbus/pkg/teleop"
)

func simArm(t *testing.T) (*arm.Arm, *sim.Transport) {
	t.Helper()

	motors := make(map[int]string)
	cal := bus.CalibrationMap{}
	for _, m := range arm.Motors() {
		motors[m.ID] = m.Model
		cal[m.Name] = bus.MotorCalibration{ID: m.ID, RangeMin: 0, RangeMax: 4095}
	}

	transport, err := sim.New(feetech.Family, motors)
	if err != nil {
		t.Fatal(err)
	}
	a, err := arm.New(transport, cal)
	if err != nil {
		t.Fatalf("arm.New: %v", err)
	}
	return a, transport
}

func TestFollowerTracksLeader(t *testing.T) {
	leader, leaderSim := simArm(t)
	follower, followerSim := simArm(t)

	// Park the leader's joints off-center so tracking is observable.
	for _, m := range arm.Motors() {
		leaderSim.SetActual(m.ID, 1000+100*m.ID)
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Leader:   leader,
		Follower: follower,
		Hz:       500,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	// Wait for a few completed control steps.
	for i := 0; i < 3; i++ {
		select {
		case s := <-ctrl.States():
			if s.Error != nil {
				t.Errorf("state carried error: %v", s.Error)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no state update from control loop")
		}
	}
	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Start returned %v, want context.Canceled", err)
	}

	// The leader's torque must be off, the follower's goals must match the
	// leader's pose.
	if leaderSim.Register(1, "Torque_Enable") != 0 {
		t.Error("leader torque still enabled")
	}
	for _, m := range arm.Motors() {
		want := 1000 + 100*m.ID
		got := followerSim.Register(m.ID, "Goal_Position")
		if got < want-2 || got > want+2 {
			t.Errorf("%s: follower goal = %d, want ~%d", m.Name, got, want)
		}
	}
}

func TestMirrorInvertsSelectedJoints(t *testing.T) {
	leader, leaderSim := simArm(t)
	follower, followerSim := simArm(t)

	// shoulder_pan at +50, elbow_flex at +25.
	leaderSim.SetActual(1, 3071)
	leaderSim.SetActual(3, 2559)

	ctrl, err := teleop.NewController(teleop.Config{
		Leader:   leader,
		Follower: follower,
		Hz:       500,
		Mirror:   true,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	defer ctrl.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	select {
	case <-ctrl.States():
	case <-time.After(2 * time.Second):
		t.Fatal("no state update from control loop")
	}
	cancel()
	<-done

	// Mirrored joint lands on the opposite side of center.
	pan := followerSim.Register(1, "Goal_Position")
	if pan < 1010 || pan > 1035 {
		t.Errorf("mirrored shoulder_pan goal = %d, want ~1023", pan)
	}
	// Unmirrored joint tracks directly.
	elbow := followerSim.Register(3, "Goal_Position")
	if elbow < 2550 || elbow > 2570 {
		t.Errorf("elbow_flex goal = %d, want ~2559", elbow)
	}
}
