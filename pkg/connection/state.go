// Package connection tracks the pairing and operating mode of the
// backpack.
package connection

import (
	"github.com/golang/glog"

	"github.com/robotalks/backpack/pkg/config"
	"github.com/robotalks/backpack/pkg/msp"
)

// State is the connection state.
type State int

// States.
const (
	StateStarting State = iota
	StateRunning
	StateBinding
	StateWifiUpdate
)

var stateNames = [...]string{"starting", "running", "binding", "wifiUpdate"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

const (
	// BindingTimeoutMs ends binding without a peer.
	BindingTimeoutMs uint32 = 120000
	// BootCountResetMs is the running time after which a boot is no longer
	// counted as a quick power cycle.
	BootCountResetMs uint32 = 2000
	// BootCountBindThreshold enters binding when the boot counter exceeds it.
	BootCountBindThreshold uint8 = 2
)

// ChangeFunc observes state transitions.
type ChangeFunc func(from, to State)

// Machine is the connection state machine. It is owned by the loop
// goroutine and never touched from transport callbacks.
type Machine struct {
	OnChange ChangeFunc

	settings     *config.Settings
	state        State
	bindingStart uint32
	runningSince uint32
	bootCounted  bool
}

// NewMachine creates a Machine in the starting state.
func NewMachine(settings *config.Settings) *Machine {
	return &Machine{settings: settings}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// BindingStart returns when binding was entered.
func (m *Machine) BindingStart() uint32 {
	return m.bindingStart
}

// Settings returns the persisted settings.
func (m *Machine) Settings() *config.Settings {
	return m.settings
}

// Boot completes boot initialization. It consumes the Wi-Fi-on-boot flag
// and counts quick power cycles.
func (m *Machine) Boot(now uint32) {
	if m.state != StateStarting {
		return
	}
	if m.settings.StartWifiOnBoot() {
		m.settings.SetStartWifiOnBoot(false)
		m.commit()
		m.transit(StateWifiUpdate)
		return
	}
	count := m.settings.BootCount() + 1
	m.settings.SetBootCount(count)
	m.commit()
	m.runningSince = now
	m.transit(StateRunning)
	if count > BootCountBindThreshold {
		glog.Infof("boot count %d exceeds %d", count, BootCountBindThreshold)
		m.EnterBinding(now)
	}
}

// EnterBinding starts learning a new peer address.
func (m *Machine) EnterBinding(now uint32) bool {
	if m.state != StateRunning {
		return false
	}
	m.bindingStart = now
	m.transit(StateBinding)
	return true
}

// EnterWifi switches to Wi-Fi update mode, terminal until reboot.
func (m *Machine) EnterWifi() bool {
	if m.state != StateRunning && m.state != StateBinding {
		return false
	}
	m.transit(StateWifiUpdate)
	return true
}

// CompleteBinding persists the learned peer and returns to running.
func (m *Machine) CompleteBinding(addr config.Address) bool {
	if m.state != StateBinding {
		return false
	}
	glog.Infof("bound to %s", addr)
	m.settings.SetPeerAddress(addr)
	m.settings.SetBootCount(0)
	m.bootCounted = true
	m.commit()
	m.transit(StateRunning)
	return true
}

// Tick applies time based transitions and returns the milliseconds until
// the next one, or a negative value when none is pending.
func (m *Machine) Tick(now uint32) int32 {
	switch m.state {
	case StateBinding:
		if elapsed := now - m.bindingStart; elapsed > BindingTimeoutMs {
			glog.Infof("binding timeout, peer unchanged")
			m.transit(StateRunning)
		} else {
			return int32(BindingTimeoutMs-elapsed) + 1
		}
	case StateRunning:
	default:
		return -1
	}
	if m.bootCounted {
		return -1
	}
	elapsed := now - m.runningSince
	if elapsed <= BootCountResetMs {
		return int32(BootCountResetMs-elapsed) + 1
	}
	m.settings.SetBootCount(0)
	m.commit()
	m.bootCounted = true
	return -1
}

// Accepts tells whether a command may be processed in the current state.
// While binding only the bind command gets through.
func (m *Machine) Accepts(function uint16) bool {
	switch m.state {
	case StateRunning:
		return true
	case StateBinding:
		return function == msp.FuncELRSBind
	}
	return false
}

// AcceptsSender tells whether src may send commands. An unpaired
// backpack and a binding one listen to everyone.
func (m *Machine) AcceptsSender(src config.Address) bool {
	if m.state == StateBinding {
		return true
	}
	peer := m.settings.PeerAddress()
	return peer.IsZero() || peer == src
}

func (m *Machine) transit(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	glog.Infof("connection %s -> %s", from, to)
	if m.OnChange != nil {
		m.OnChange(from, to)
	}
}

func (m *Machine) commit() {
	if err := m.settings.Commit(); err != nil {
		glog.Errorf("commit settings failed: %v", err)
	}
}
