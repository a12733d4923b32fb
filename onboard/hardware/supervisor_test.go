package hardware

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/CodedInternet/canmotor/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"
)

func newTestSupervisor(m *scriptedMotor, opts ...SupervisorOption) (*fakeClock, *Supervisor) {
	clock := newFakeClock()
	opts = append([]SupervisorOption{WithSupervisorClock(clock), WithSupervisorLogger(logger.Discard())}, opts...)
	return clock, NewSupervisor(m, opts...)
}

func converging(from, to float64, steps int) []reading {
	r := make([]reading, 0, steps+1)
	for i := 0; i <= steps; i++ {
		r = append(r, valid(from+(to-from)*float64(i)/float64(steps)))
	}
	return r
}

func TestSupervisorReach(t *testing.T) {
	ctx := context.Background()

	Convey("a converging motor is reached", t, func() {
		m := &scriptedMotor{family: Bionic, readings: converging(0, 89.5, 5)}
		clock, s := newTestSupervisor(m)

		out := s.Run(ctx, Move{Target: 90, Velocity: 10})
		So(out.Result, ShouldEqual, Reached)
		So(out.Iterations, ShouldEqual, 6)
		So(out.Position, ShouldEqual, 89.5)
		So(out.Target, ShouldEqual, 90)
		So(out.Elapsed, ShouldEqual, 6*200*time.Millisecond)
		So(clock.slept[0], ShouldEqual, 200*time.Millisecond)
		So(s.State(), ShouldEqual, StateReached)

		Convey("sustained families resend every iteration", func() {
			So(m.writes, ShouldHaveLength, 6)
			So(m.writes[0], ShouldResemble, WritePosition{Target: 90, Velocity: 10})
		})
	})

	Convey("LK sends once and compares within one turn", t, func() {
		m := &scriptedMotor{family: LK, readings: converging(200, 9.4, 4)}
		clock, s := newTestSupervisor(m)

		out := s.Run(ctx, Move{Target: 10, Velocity: 20})
		So(out.Result, ShouldEqual, Reached)
		So(m.writes, ShouldHaveLength, 1)
		So(clock.slept, ShouldHaveLength, 5)

		Convey("targets near the zero crossing are snapped", func() {
			m := &scriptedMotor{family: LK, readings: []reading{valid(1)}}
			_, s := newTestSupervisor(m)

			out := s.Run(ctx, Move{Target: 0.2})
			So(m.writes[0].Target, ShouldEqual, 1)
			So(out.Target, ShouldEqual, 1)
			So(out.Result, ShouldEqual, Reached)

			s.Run(ctx, Move{Target: 400})
			So(m.writes[1].Target, ShouldEqual, 359)
		})

		Convey("a failed send is retried on the next iteration", func() {
			m := &scriptedMotor{family: LK, writeErr: true, readings: []reading{valid(100)}}
			_, s := newTestSupervisor(m, WithPolicy(Policy{Tolerance: 1, PollInterval: time.Second, Timeout: 3 * time.Second, SingleTurn: true}))

			out := s.Run(ctx, Move{Target: 10})
			So(out.Result, ShouldEqual, TimedOut)
			So(m.writes, ShouldHaveLength, 4)
		})
	})

	Convey("RMD goals are rounded to the wire resolution", t, func() {
		m := &scriptedMotor{family: RMD, readings: []reading{valid(721.235)}}
		_, s := newTestSupervisor(m)

		out := s.Run(ctx, Move{Target: 720.234})
		So(out.Target, ShouldEqual, 720.23)
		So(out.Result, ShouldEqual, TimedOut)
	})

	Convey("the tolerance boundary is inclusive", t, func() {
		m := &scriptedMotor{family: Bionic, readings: []reading{valid(91)}}
		_, s := newTestSupervisor(m)
		So(s.Run(ctx, Move{Target: 90}).Result, ShouldEqual, Reached)
	})
}

func TestSupervisorTimeout(t *testing.T) {
	ctx := context.Background()

	Convey("a motor that never converges times out at the deadline and not before", t, func() {
		m := &scriptedMotor{family: RMD, readings: []reading{valid(10)}}
		clock, s := newTestSupervisor(m)
		start := clock.Now()

		out := s.Run(ctx, Move{Target: 90, Velocity: 10})
		So(out.Result, ShouldEqual, TimedOut)
		So(out.Position, ShouldEqual, 10)
		So(clock.Now().Sub(start), ShouldBeGreaterThan, RMD.Policy().Timeout)
		So(out.Elapsed, ShouldBeGreaterThan, RMD.Policy().Timeout)
		So(out.Iterations, ShouldEqual, 200)
		So(s.State(), ShouldEqual, StateTimedOut)
	})

	Convey("intermittent lost readings are not progress", t, func() {
		m := &scriptedMotor{family: Bionic, readings: []reading{
			valid(10), {}, {pos: BIONIC_NO_READING, ok: true}, valid(50), {}, valid(90),
		}}
		_, s := newTestSupervisor(m)

		out := s.Run(ctx, Move{Target: 90})
		So(out.Result, ShouldEqual, Reached)
		So(out.Iterations, ShouldEqual, 6)
		So(out.Lost, ShouldEqual, 3)
	})

	Convey("LK sentinel readings never count as reached", t, func() {
		m := &scriptedMotor{family: LK, readings: []reading{{pos: LK_NO_READING, ok: true}, valid(50), {pos: LK_NO_READING, ok: true}}}
		_, s := newTestSupervisor(m, WithPolicy(Policy{Tolerance: 3, PollInterval: time.Second, Timeout: 5 * time.Second, SingleTurn: true}))

		out := s.Run(ctx, Move{Target: 0.5})
		So(out.Target, ShouldEqual, 1)
		So(out.Result, ShouldEqual, TimedOut)
		So(out.Position, ShouldEqual, 50)
	})

	Convey("no valid reading before the deadline is feedback lost", t, func() {
		m := &scriptedMotor{family: LK}
		clock, s := newTestSupervisor(m)
		start := clock.Now()

		out := s.Run(ctx, Move{Target: 90})
		So(out.Result, ShouldEqual, FeedbackLost)
		So(out.Position, ShouldEqual, LK_NO_READING)
		So(out.Lost, ShouldEqual, out.Iterations)
		So(clock.Now().Sub(start), ShouldBeGreaterThan, LK.Policy().Timeout)
		So(s.State(), ShouldEqual, StateFeedbackLost)
	})

	Convey("lost readings are logged as warnings", t, func() {
		log := logger.NewMockLogger().Quiet()
		m := &scriptedMotor{family: Bionic, readings: []reading{{}, valid(90)}}
		_, s := newTestSupervisor(m, WithSupervisorLogger(log))

		So(s.Run(ctx, Move{Target: 90}).Result, ShouldEqual, Reached)
		So(log.AssertCalled(t, "Warn", "no valid feedback", mock.Anything), ShouldBeTrue)
	})

	Convey("out of range LK targets are clamped with a warning", t, func() {
		log := logger.NewMockLogger().Quiet()
		m := &scriptedMotor{family: LK, readings: []reading{valid(1)}}
		_, s := newTestSupervisor(m, WithSupervisorLogger(log))

		out := s.Run(ctx, Move{Target: -20})
		So(m.writes[0].Target, ShouldEqual, 1)
		So(out.Result, ShouldEqual, Reached)
		So(log.AssertCalled(t, "Warn", "target clamped to one turn", mock.Anything), ShouldBeTrue)

		Convey("in range targets are not", func() {
			log := logger.NewMockLogger().Quiet()
			m := &scriptedMotor{family: LK, readings: []reading{valid(90)}}
			_, s := newTestSupervisor(m, WithSupervisorLogger(log))

			s.Run(ctx, Move{Target: 90})
			So(log.AssertNotCalled(t, "Warn", "target clamped to one turn", mock.Anything), ShouldBeTrue)
		})
	})
}

func TestSupervisorAbort(t *testing.T) {
	Convey("a cancelled context aborts between iterations", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		m := &scriptedMotor{family: RMD, readings: []reading{valid(0)}}
		m.onRead = func(n int) {
			if n == 3 {
				cancel()
			}
		}
		_, s := newTestSupervisor(m)

		out := s.Run(ctx, Move{Target: 90})
		So(out.Result, ShouldEqual, Aborted)
		So(out.Iterations, ShouldEqual, 3)
		So(s.State(), ShouldEqual, StateAborted)
	})

	Convey("an already cancelled context sends nothing", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		m := &scriptedMotor{family: RMD}
		_, s := newTestSupervisor(m)

		So(s.Run(ctx, Move{Target: 90}).Result, ShouldEqual, Aborted)
		So(m.writes, ShouldBeEmpty)
	})
}

func TestSupervisorRelative(t *testing.T) {
	ctx := context.Background()

	Convey("relative moves start from the rounded current position", t, func() {
		m := &scriptedMotor{family: RMD, readings: []reading{valid(99.6), valid(100), valid(129.7)}}
		_, s := newTestSupervisor(m)

		out := s.RunRelative(ctx, 29.5, 10, 0)
		So(m.writes[0].Target, ShouldEqual, 130)
		So(out.Target, ShouldEqual, 130)
		So(out.Result, ShouldEqual, Reached)
	})

	Convey("without a starting position nothing is sent", t, func() {
		m := &scriptedMotor{family: Bionic}
		_, s := newTestSupervisor(m)

		out := s.RunRelative(ctx, 10, 10, 0)
		So(out.Result, ShouldEqual, FeedbackLost)
		So(math.IsNaN(out.Target), ShouldBeTrue)
		So(m.writes, ShouldBeEmpty)
	})
}

func TestMotionNames(t *testing.T) {
	Convey("results and states print", t, func() {
		So(Reached.String(), ShouldEqual, "reached")
		So(FeedbackLost.String(), ShouldEqual, "feedback lost")
		So(MotionResult(9).String(), ShouldEqual, "unknown")
		So(Polling.String(), ShouldEqual, "polling")
		So(terminalState(Aborted), ShouldEqual, StateAborted)
	})
}
