// Package killswitch implements the process-wide shutdown coordination
// of spec §4.10: a single atomic state machine checked with one load on
// the hot path, mutated from background signal-handling goroutines.
// Grounded on original_source's bog-core resilience/kill_switch.rs
// (SIGTERM/SIGUSR1/SIGUSR2 mapping) and the teacher's cmd/bot/main.go
// signal.Notify wiring.
package killswitch

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

// State is the kill switch's FSM state (spec §4.10). ShuttingDown and
// EmergencyStop are absorbing: no transition leaves them.
type State uint8

const (
	Running State = iota
	Paused
	ShuttingDown
	EmergencyStop
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case ShuttingDown:
		return "ShuttingDown"
	case EmergencyStop:
		return "EmergencyStop"
	default:
		return "Unknown"
	}
}

// KillSwitch is the process-wide shutdown coordinator.
type KillSwitch struct {
	state          atomic.Uint32
	reason         atomic.Value // string
	shutdownAtUnix atomic.Int64
}

// New returns a KillSwitch in Running state.
func New() *KillSwitch {
	ks := &KillSwitch{}
	ks.state.Store(uint32(Running))
	ks.reason.Store("")
	return ks
}

// Install registers OS signal handlers per spec §6: SIGTERM -> graceful
// shutdown, SIGUSR1 -> emergency stop, SIGUSR2 -> pause/resume toggle.
// The returned stop function releases the signal handlers.
func (ks *KillSwitch) Install() (stop func()) {
	sigCh := make(chan os.Signal, 3)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				switch sig {
				case syscall.SIGTERM:
					ks.Shutdown("SIGTERM received")
				case syscall.SIGUSR1:
					ks.EmergencyStop("SIGUSR1 received")
				case syscall.SIGUSR2:
					ks.TogglePause()
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// ShouldStop reports whether the hot loop must exit its read loop.
func (ks *KillSwitch) ShouldStop() bool {
	s := State(ks.state.Load())
	return s == ShuttingDown || s == EmergencyStop
}

func (ks *KillSwitch) IsPaused() bool  { return State(ks.state.Load()) == Paused }
func (ks *KillSwitch) IsRunning() bool { return State(ks.state.Load()) == Running }
func (ks *KillSwitch) State() State    { return State(ks.state.Load()) }

// Shutdown initiates graceful shutdown. No effect once ShuttingDown or
// EmergencyStop.
func (ks *KillSwitch) Shutdown(reason string) {
	for {
		cur := ks.state.Load()
		if State(cur) == ShuttingDown || State(cur) == EmergencyStop {
			return
		}
		if ks.state.CompareAndSwap(cur, uint32(ShuttingDown)) {
			break
		}
	}
	ks.reason.Store(reason)
	ks.shutdownAtUnix.Store(time.Now().Unix())
}

// EmergencyStop initiates immediate, non-graceful shutdown (exit code 2
// per spec §6). No effect once ShuttingDown or EmergencyStop.
func (ks *KillSwitch) EmergencyStop(reason string) {
	for {
		cur := ks.state.Load()
		if State(cur) == ShuttingDown || State(cur) == EmergencyStop {
			return
		}
		if ks.state.CompareAndSwap(cur, uint32(EmergencyStop)) {
			break
		}
	}
	ks.reason.Store("EMERGENCY: " + reason)
	ks.shutdownAtUnix.Store(time.Now().Unix())
}

// Pause suppresses executor.Execute calls while continuing to ingest
// snapshots and update counters (spec §4.10).
func (ks *KillSwitch) Pause() {
	ks.state.CompareAndSwap(uint32(Running), uint32(Paused))
}

// Resume returns from Paused to Running. No-op from any other state.
func (ks *KillSwitch) Resume() {
	ks.state.CompareAndSwap(uint32(Paused), uint32(Running))
}

// TogglePause flips Running<->Paused; has no effect once shutting down.
func (ks *KillSwitch) TogglePause() {
	if ks.IsPaused() {
		ks.Resume()
	} else if ks.IsRunning() {
		ks.Pause()
	}
}

// Reason returns the recorded shutdown reason, if any.
func (ks *KillSwitch) Reason() string {
	v, _ := ks.reason.Load().(string)
	return v
}
