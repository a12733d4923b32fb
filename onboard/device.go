package onboard

import (
	"context"
	"errors"
	"sort"

	"github.com/CodedInternet/canmotor/logger"
	"github.com/CodedInternet/canmotor/onboard/canbus"
	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
	"github.com/CodedInternet/canmotor/onboard/hardware"
)

var (
	ERR_NO_MOTORS   = errors.New("no motors configured")
	ERR_SEND_FAILED = errors.New("frame was not delivered")
)

// Device is what the command line drives.
type Device interface {
	Names() []string
	Move(ctx context.Context, name string, mv hardware.Move) (hardware.Outcome, error)
	MoveRelative(ctx context.Context, name string, delta, velocity, current float64) (hardware.Outcome, error)
	Read(name string) (fb hardware.Feedback, ok bool, err error)
	Enable(name string) error
	Disable(name string) error
	Close() error
}

type rigMotor struct {
	motor      *hardware.Motor
	supervisor *hardware.Supervisor
	current    float64
	port       canbus.CANBusInterface
}

var _ Device = (*Rig)(nil)

// Rig owns a bus and every motor configured on it. Moves on different motors
// may run concurrently when the bus is shared through a Mux; each motor still
// runs one move at a time.
type Rig struct {
	bus    canbus.CANBusInterface
	mux    *canbus.Mux
	motors map[string]*rigMotor
	names  []string
	log    logger.Logger
}

type rigOptions struct {
	bus   canbus.CANBusInterface
	clock hardware.Clock
	log   logger.Logger
}

type RigOption func(*rigOptions)

// WithRigBus uses bus instead of opening the configured interface. The
// Rig still takes ownership and closes it.
func WithRigBus(bus canbus.CANBusInterface) RigOption {
	return func(o *rigOptions) { o.bus = bus }
}

func WithRigClock(c hardware.Clock) RigOption {
	return func(o *rigOptions) { o.clock = c }
}

func WithRigLogger(l logger.Logger) RigOption {
	return func(o *rigOptions) { o.log = l }
}

func NewRig(config *RigConfig, opts ...RigOption) (rig *Rig, err error) {
	o := rigOptions{
		clock: hardware.WallClock(),
		log:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	bus := o.bus
	if bus == nil {
		if bus, err = canbus.NewCANBus(config.Bus); err != nil {
			return nil, err
		}
	}

	rig = &Rig{
		bus:    bus,
		motors: make(map[string]*rigMotor, len(config.Motors)),
		log:    o.log.With("bus", config.Bus),
	}
	if len(config.Motors) > 1 {
		rig.mux = canbus.NewMux(bus)
	}

	for name := range config.Motors {
		rig.names = append(rig.names, name)
	}
	sort.Strings(rig.names)

	for _, name := range rig.names {
		mc := config.Motors[name]
		port := bus
		if rig.mux != nil {
			port = rig.mux.Listen(mc.Reply())
		}

		enable, disable := mc.StateCodes()
		motor := hardware.NewMotor(port, mc.Family, mc.ID, name,
			hardware.WithReplyID(mc.Reply()),
			hardware.WithStateCodes(enable, disable),
			hardware.WithClock(o.clock),
			hardware.WithLogger(o.log),
		)

		rig.motors[name] = &rigMotor{
			motor: motor,
			supervisor: hardware.NewSupervisor(motor,
				hardware.WithPolicy(mc.Policy()),
				hardware.WithSupervisorClock(o.clock),
				hardware.WithSupervisorLogger(o.log),
			),
			current: mc.Current,
			port:    port,
		}
	}

	rig.log.Info("rig ready", "motors", len(rig.names), "shared", rig.mux != nil)
	return rig, nil
}

func (r *Rig) get(name string) (*rigMotor, error) {
	m, ok := r.motors[name]
	if !ok {
		return nil, devErrors.MotorNameError{Name: name}
	}
	return m, nil
}

// Names lists the configured motors in sorted order.
func (r *Rig) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Rig) Motor(name string) (*hardware.Motor, error) {
	m, err := r.get(name)
	if err != nil {
		return nil, err
	}
	return m.motor, nil
}

func (r *Rig) Supervisor(name string) (*hardware.Supervisor, error) {
	m, err := r.get(name)
	if err != nil {
		return nil, err
	}
	return m.supervisor, nil
}

// Move runs a supervised move. A zero current uses the configured current,
// which may itself be zero for the family default.
func (r *Rig) Move(ctx context.Context, name string, mv hardware.Move) (out hardware.Outcome, err error) {
	m, err := r.get(name)
	if err != nil {
		return out, err
	}
	if mv.Current == 0 {
		mv.Current = m.current
	}
	return m.supervisor.Run(ctx, mv), nil
}

func (r *Rig) MoveRelative(ctx context.Context, name string, delta, velocity, current float64) (out hardware.Outcome, err error) {
	m, err := r.get(name)
	if err != nil {
		return out, err
	}
	if current == 0 {
		current = m.current
	}
	return m.supervisor.RunRelative(ctx, delta, velocity, current), nil
}

func (r *Rig) Read(name string) (fb hardware.Feedback, ok bool, err error) {
	m, err := r.get(name)
	if err != nil {
		return fb, false, err
	}
	fb, ok = m.motor.ReadFeedback()
	return fb, ok, nil
}

func (r *Rig) Enable(name string) error {
	m, err := r.get(name)
	if err != nil {
		return err
	}
	if !m.motor.Enable() {
		return ERR_SEND_FAILED
	}
	return nil
}

func (r *Rig) Disable(name string) error {
	m, err := r.get(name)
	if err != nil {
		return err
	}
	if !m.motor.Disable() {
		return ERR_SEND_FAILED
	}
	return nil
}

// Close releases the bus. Motors must not be used afterwards.
func (r *Rig) Close() error {
	if r.mux != nil {
		for _, m := range r.motors {
			m.port.Close()
		}
		return r.mux.Close()
	}
	return r.bus.Close()
}
