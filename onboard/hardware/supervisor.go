package hardware

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/CodedInternet/canmotor/logger"
	"github.com/google/uuid"
)

// Policy controls how a Supervisor drives one move.
type Policy struct {
	Tolerance    float64       // degrees either side of the goal that count as reached
	PollInterval time.Duration // sleep before each feedback read
	Timeout      time.Duration // measured from the first command
	Sustained    bool          // re-send the target on every iteration
	SingleTurn   bool          // clamp targets into one turn and compare modulo 360
}

// Actuator is the part of a Motor the supervisor needs.
type Actuator interface {
	Name() string
	Family() Family
	WriteTarget(ctx context.Context, cmd WritePosition) bool
	ReadFeedback() (Feedback, bool)
}

// Move is one supervised position request.
//
// Current is the limit in amps and zero means not given. A Rig replaces zero
// with the motor's configured current; when that is zero too the Bionic codec
// sends BIONIC_DEFAULT_CURRENT. LK and RMD ignore the field.
type Move struct {
	Target   float64 // degrees
	Velocity float64 // rpm
	Current  float64 // amps, zero when not given
}

type MotionResult int

const (
	Reached MotionResult = iota
	TimedOut
	FeedbackLost
	Aborted
)

func (r MotionResult) String() string {
	switch r {
	case Reached:
		return "reached"
	case TimedOut:
		return "timed out"
	case FeedbackLost:
		return "feedback lost"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

type State int32

const (
	Idle State = iota
	Commanding
	Polling
	StateReached
	StateTimedOut
	StateFeedbackLost
	StateAborted
)

var stateNames = [...]string{
	Idle:              "idle",
	Commanding:        "commanding",
	Polling:           "polling",
	StateReached:      "reached",
	StateTimedOut:     "timed out",
	StateFeedbackLost: "feedback lost",
	StateAborted:      "aborted",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func terminalState(r MotionResult) State {
	return StateReached + State(r)
}

// Outcome reports how a move ended.
type Outcome struct {
	ID         uuid.UUID
	Result     MotionResult
	Target     float64 // the goal positions were compared against
	Position   float64 // last valid reading, or the family sentinel if none
	Iterations int
	Lost       int // iterations whose reading was missing or a sentinel
	Elapsed    time.Duration
}

// Supervisor runs the move-and-monitor loop for a single motor. Moves are
// synchronous; Run must not be called concurrently on one Supervisor.
type Supervisor struct {
	motor  Actuator
	policy Policy
	clock  Clock
	log    logger.Logger
	state  atomic.Int32
}

type SupervisorOption func(*Supervisor)

func WithPolicy(p Policy) SupervisorOption {
	return func(s *Supervisor) { s.policy = p }
}

func WithSupervisorClock(c Clock) SupervisorOption {
	return func(s *Supervisor) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithSupervisorLogger(l logger.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSupervisor uses the motor family's default policy unless overridden.
func NewSupervisor(motor Actuator, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		motor:  motor,
		policy: motor.Family().Policy(),
		clock:  WallClock(),
		log:    logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("motor", motor.Name())
	return s
}

func (s *Supervisor) Policy() Policy { return s.policy }

// State is the current state of the loop. Safe to call while Run is active.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	s.state.Store(int32(st))
}

// resolve returns the target to command and the goal to compare readings with.
func (s *Supervisor) resolve(target float64) (cmd, goal float64) {
	if s.policy.SingleTurn {
		cmd = clampTurn(target)
		return cmd, wrapTurn(cmd)
	}
	if s.motor.Family() == RMD {
		return target, roundTo(target, 2)
	}
	return target, target
}

// Run commands the move and polls feedback until the position is within
// tolerance of the goal, the policy timeout passes or ctx is cancelled.
// Send failures are retried on the next iteration. Run never returns early
// with TimedOut; at the deadline the result is FeedbackLost if no valid
// reading arrived during the move.
func (s *Supervisor) Run(ctx context.Context, mv Move) Outcome {
	target, goal := s.resolve(mv.Target)
	cmd := WritePosition{Target: target, Velocity: mv.Velocity, Current: mv.Current}
	fam := s.motor.Family()

	out := Outcome{
		ID:       uuid.New(),
		Target:   goal,
		Position: fam.NoReading(),
	}
	log := s.log.With("move", out.ID.String())
	log.Info("move started", "target", target, "velocity", mv.Velocity)
	if target != mv.Target {
		log.Warn("target clamped to one turn", "requested", mv.Target, "target", target)
	}

	start := s.clock.Now()
	sent := false
	seen := false

	finish := func(r MotionResult) Outcome {
		out.Result = r
		out.Elapsed = s.clock.Now().Sub(start)
		s.setState(terminalState(r))
		log.Info("move finished", "result", r.String(), "position", out.Position,
			"iterations", out.Iterations, "elapsed", out.Elapsed)
		return out
	}

	for {
		if ctx.Err() != nil {
			return finish(Aborted)
		}

		if s.policy.Sustained || !sent {
			s.setState(Commanding)
			if s.motor.WriteTarget(ctx, cmd) {
				sent = true
			} else {
				log.Warn("command not sent, retrying next iteration")
			}
		}

		s.setState(Polling)
		if err := s.clock.Sleep(ctx, s.policy.PollInterval); err != nil {
			return finish(Aborted)
		}

		if s.clock.Now().Sub(start) > s.policy.Timeout {
			if seen {
				return finish(TimedOut)
			}
			return finish(FeedbackLost)
		}

		out.Iterations++
		fb, ok := s.motor.ReadFeedback()
		if !ok || fam.IsNoReading(fb.Position) {
			out.Lost++
			log.Warn("no valid feedback", "iteration", out.Iterations)
			continue
		}

		seen = true
		out.Position = fb.Position
		log.Debug("feedback", "position", fb.Position, "goal", goal)

		if math.Abs(fb.Position-goal) <= s.policy.Tolerance {
			return finish(Reached)
		}
	}
}

// RunRelative moves by delta degrees from the current position, both rounded
// to whole degrees. Without a valid starting reading it reports FeedbackLost
// and sends nothing.
func (s *Supervisor) RunRelative(ctx context.Context, delta, velocity, current float64) Outcome {
	fb, ok := s.motor.ReadFeedback()
	if !ok || s.motor.Family().IsNoReading(fb.Position) {
		s.setState(StateFeedbackLost)
		s.log.Warn("relative move without a starting position", "delta", delta)
		return Outcome{
			ID:       uuid.New(),
			Result:   FeedbackLost,
			Target:   math.NaN(),
			Position: s.motor.Family().NoReading(),
		}
	}

	return s.Run(ctx, Move{
		Target:   roundTo(fb.Position, 0) + roundTo(delta, 0),
		Velocity: velocity,
		Current:  current,
	})
}
