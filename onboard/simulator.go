package onboard

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/CodedInternet/canmotor/onboard/canbus"
	"github.com/CodedInternet/canmotor/onboard/hardware"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	SIM_QUEUE_DEPTH = 64
	SIM_TEMPERATURE = 25.0
	SIM_CURRENT     = 0.5
)

// SimulatedMotor answers a family's protocol on a LoopbackBus. Once enabled it
// moves towards the last commanded target at the commanded velocity.
type SimulatedMotor struct {
	lock     sync.Mutex
	family   hardware.Family
	codec    hardware.Codec
	id       uint32
	replyID  uint32
	enable   uint8
	disable  uint8
	now      func() time.Time
	last     time.Time
	enabled  bool
	position float64
	target   float64
	velocity float64 // rpm
}

func NewSimulatedMotor(mc MotorConfig, now func() time.Time) *SimulatedMotor {
	if now == nil {
		now = time.Now
	}
	enable, disable := mc.StateCodes()
	return &SimulatedMotor{
		family:  mc.Family,
		codec:   mc.Family.Codec(),
		id:      mc.ID,
		replyID: mc.Reply(),
		enable:  enable,
		disable: disable,
		now:     now,
		last:    now(),
	}
}

func (m *SimulatedMotor) Respond(msg canbus.CANMsg) []canbus.CANMsg {
	if msg.ID != m.id {
		return nil
	}

	cmd, ok := m.codec.DecodeCommand(msg.Data)
	if !ok {
		return nil
	}

	m.lock.Lock()
	defer m.lock.Unlock()
	m.step()

	switch cmd.Kind {
	case hardware.CMD_SET_STATE:
		switch cmd.State {
		case m.enable:
			m.enabled = true
		case m.disable:
			m.enabled = false
		}

	case hardware.CMD_WRITE_POSITION:
		m.target = cmd.Write.Target
		m.velocity = math.Abs(cmd.Write.Velocity)
		if m.family == hardware.Bionic {
			// Bionic motors acknowledge every position command with feedback
			return []canbus.CANMsg{{ID: m.replyID, Data: m.codec.EncodeFeedback(m.feedback())}}
		}

	case hardware.CMD_READ_POSITION:
		return []canbus.CANMsg{{ID: m.replyID, Data: m.codec.EncodeFeedback(m.feedback())}}
	}
	return nil
}

// step advances the position by the time passed since the last frame.
func (m *SimulatedMotor) step() {
	now := m.now()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	if !m.enabled || dt <= 0 {
		return
	}

	// rpm to degrees per second
	reach := m.velocity * 6 * dt
	m.position += mgl64.Clamp(m.target-m.position, -reach, reach)
}

func (m *SimulatedMotor) feedback() hardware.Feedback {
	pos := m.position
	if m.family == hardware.LK {
		// LK reports a single turn angle
		pos = math.Mod(pos, 360)
		if pos < 0 {
			pos += 360
		}
	}

	current := 0.0
	if m.enabled && m.position != m.target {
		current = SIM_CURRENT
	}

	return hardware.Feedback{
		MessageClass: 1,
		Position:     pos,
		Current:      current,
		Temperature:  SIM_TEMPERATURE,
	}
}

// Position is the simulated shaft angle, not wrapped to one turn.
func (m *SimulatedMotor) Position() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.step()
	return m.position
}

func (m *SimulatedMotor) SetPosition(pos float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.step()
	m.position, m.target = pos, pos
}

func (m *SimulatedMotor) Enabled() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.enabled
}

// Simulator is a loopback bus with one simulated motor per configured motor.
type Simulator struct {
	bus    *canbus.LoopbackBus
	motors map[string]*SimulatedMotor
}

func NewSimulator(config *RigConfig, now func() time.Time) *Simulator {
	s := &Simulator{
		bus:    canbus.NewLoopbackBus(SIM_QUEUE_DEPTH),
		motors: make(map[string]*SimulatedMotor, len(config.Motors)),
	}

	names := make([]string, 0, len(config.Motors))
	for name := range config.Motors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		m := NewSimulatedMotor(config.Motors[name], now)
		s.motors[name] = m
		s.bus.Attach(m)
	}
	return s
}

func (s *Simulator) Bus() *canbus.LoopbackBus {
	return s.bus
}

func (s *Simulator) Motor(name string) (*SimulatedMotor, bool) {
	m, ok := s.motors[name]
	return m, ok
}
