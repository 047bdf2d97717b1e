// Package teleop provides leader/follower teleoperation for robot arms: the
// follower continuously mirrors the joint positions of a hand-moved leader.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/motorbus/pkg/arm"
)

// State represents the current state of teleoperation.
type State struct {
	Positions map[string]float64
	Timestamp time.Time
	Error     error
}

// Controller manages the teleoperation control loop.
type Controller struct {
	leader   *arm.Arm
	follower *arm.Arm
	hz       int
	mirror   bool

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Leader   *arm.Arm
	Follower *arm.Arm
	Hz       int
	Mirror   bool // invert shoulder_pan and wrist_roll
}

// NewController creates a controller for two connected arms.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Leader == nil || cfg.Follower == nil {
		return nil, fmt.Errorf("both leader and follower arms are required")
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	return &Controller{
		leader:   cfg.Leader,
		follower: cfg.Follower,
		hz:       cfg.Hz,
		mirror:   cfg.Mirror,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}, nil
}

// Close disconnects both arms.
func (c *Controller) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	var errs []error
	if err := c.leader.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.follower.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the teleoperation control loop and blocks until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	// The leader must move freely; the follower must hold position.
	if err := c.leader.Disable(); err != nil {
		c.log("Warning: failed to disable leader: %v", err)
	} else {
		c.log("Leader arm: torque disabled (passive mode)")
	}

	if err := c.follower.Enable(); err != nil {
		c.log("Warning: failed to enable follower: %v", err)
	} else {
		c.log("Follower arm: torque enabled")
	}

	c.log("Teleoperation started at %d Hz", c.hz)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step()
		}
	}
}

func (c *Controller) step() {
	positions, err := c.leader.ReadPositions()
	if err != nil {
		c.log("Read error: %v", err)
		c.sendState(State{Error: err, Timestamp: time.Now()})
		return
	}

	followerPositions := positions
	if c.mirror {
		followerPositions = make(map[string]float64, len(positions))
		for name, pos := range positions {
			if name == arm.ShoulderPan || name == arm.WristRoll {
				followerPositions[name] = -pos
			} else {
				followerPositions[name] = pos
			}
		}
	}

	if err := c.follower.WritePositions(followerPositions); err != nil {
		c.log("Write error: %v", err)
	}

	c.sendState(State{
		Positions: positions,
		Timestamp: time.Now(),
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.follower.Disable(); err != nil {
		c.log("Warning: failed to disable follower: %v", err)
	} else {
		c.log("Follower arm: torque disabled")
	}
	c.log("Teleoperation stopped")
}
