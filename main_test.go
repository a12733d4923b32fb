package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
	"github.com/CodedInternet/canmotor/onboard/hardware"
	. "github.com/smartystreets/goconvey/convey"
)

type scriptedPrompt struct {
	lines []string
	out   bytes.Buffer
}

func (p *scriptedPrompt) Print(val ...interface{}) {
	for _, v := range val {
		p.out.WriteString(v.(string))
	}
}

func (p *scriptedPrompt) Println(val ...interface{}) {
	p.Print(val...)
	p.out.WriteString("\n")
}

func (p *scriptedPrompt) ReadLine() string {
	if len(p.lines) == 0 {
		return "exit"
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line
}

type mockDevice struct {
	moves    []hardware.Move
	enabled  map[string]bool
	closed   bool
	moveErr  error
	readings map[string]float64
}

func newMockDevice() *mockDevice {
	return &mockDevice{enabled: map[string]bool{}, readings: map[string]float64{"yaw": 12.5}}
}

func (d *mockDevice) check(name string) error {
	if _, ok := d.readings[name]; !ok {
		return devErrors.MotorNameError{Name: name}
	}
	return nil
}

func (d *mockDevice) Names() []string { return []string{"yaw"} }

func (d *mockDevice) Move(ctx context.Context, name string, mv hardware.Move) (hardware.Outcome, error) {
	if err := d.check(name); err != nil {
		return hardware.Outcome{}, err
	}
	d.moves = append(d.moves, mv)
	if ctx.Err() != nil {
		return hardware.Outcome{Result: hardware.Aborted, Target: mv.Target}, nil
	}
	return hardware.Outcome{Result: hardware.Reached, Target: mv.Target, Position: mv.Target, Iterations: 1}, d.moveErr
}

func (d *mockDevice) MoveRelative(ctx context.Context, name string, delta, velocity, current float64) (hardware.Outcome, error) {
	return d.Move(ctx, name, hardware.Move{Target: d.readings[name] + delta, Velocity: velocity, Current: current})
}

func (d *mockDevice) Read(name string) (hardware.Feedback, bool, error) {
	if err := d.check(name); err != nil {
		return hardware.Feedback{}, false, err
	}
	return hardware.Feedback{Position: d.readings[name]}, true, nil
}

func (d *mockDevice) Enable(name string) error {
	if err := d.check(name); err != nil {
		return err
	}
	d.enabled[name] = true
	return nil
}

func (d *mockDevice) Disable(name string) error {
	if err := d.check(name); err != nil {
		return err
	}
	d.enabled[name] = false
	return nil
}

func (d *mockDevice) Close() error {
	d.closed = true
	return nil
}

func TestParsing(t *testing.T) {
	Convey("numbers", t, func() {
		v, ok := parseNumber(" 45.5 ")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 45.5)

		_, ok = parseNumber("forty")
		So(ok, ShouldBeFalse)
	})

	Convey("moves", t, func() {
		mv, err := parseMove([]string{"90", "10"})
		So(err, ShouldBeNil)
		So(mv, ShouldResemble, hardware.Move{Target: 90, Velocity: 10})

		mv, err = parseMove([]string{"-30", "5", "2.5"})
		So(err, ShouldBeNil)
		So(mv.Current, ShouldEqual, 2.5)

		_, err = parseMove([]string{"90", "fast"})
		So(err, ShouldBeError, `"fast" is not a number`)

		_, err = parseMove([]string{"90"})
		So(err, ShouldBeError)
	})

	Convey("exit words", t, func() {
		So(isExit("exit"), ShouldBeTrue)
		So(isExit(" QUIT "), ShouldBeTrue)
		So(isExit("90"), ShouldBeFalse)
	})
}

// sameScope gives each move a plain child of the session context.
func sameScope(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(parent)
}

// interruptFirst cancels the first move as a Ctrl-C would.
func interruptFirst() moveScope {
	calls := 0
	return func(parent context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(parent)
		calls++
		if calls == 1 {
			cancel()
		}
		return ctx, cancel
	}
}

func TestRunLoop(t *testing.T) {
	ctx := context.Background()

	Convey("the interactive loop", t, func() {
		dev := newMockDevice()

		Convey("moves until exit and leaves the motor disabled", func() {
			p := &scriptedPrompt{lines: []string{"90", "10", "180", "20", "exit"}}
			So(runLoop(ctx, sameScope, p, dev, "yaw"), ShouldBeNil)

			So(dev.moves, ShouldResemble, []hardware.Move{{Target: 90, Velocity: 10}, {Target: 180, Velocity: 20}})
			So(dev.enabled["yaw"], ShouldBeFalse)
			So(p.out.String(), ShouldContainSubstring, "yaw: reached")
		})

		Convey("re-prompts on input that is not a number", func() {
			p := &scriptedPrompt{lines: []string{"ninety", "90", "x", "10", "quit"}}
			So(runLoop(ctx, sameScope, p, dev, "yaw"), ShouldBeNil)

			So(dev.moves, ShouldHaveLength, 1)
			So(strings.Count(p.out.String(), "not a number"), ShouldEqual, 2)
		})

		Convey("quit at the velocity prompt moves nothing", func() {
			p := &scriptedPrompt{lines: []string{"90", "quit"}}
			So(runLoop(ctx, sameScope, p, dev, "yaw"), ShouldBeNil)
			So(dev.moves, ShouldBeEmpty)
		})

		Convey("unknown motors fail before prompting", func() {
			p := &scriptedPrompt{}
			So(runLoop(ctx, sameScope, p, dev, "roll"), ShouldResemble, devErrors.MotorNameError{Name: "roll"})
			So(p.out.Len(), ShouldEqual, 0)
		})

		Convey("an interrupted move does not end the session", func() {
			p := &scriptedPrompt{lines: []string{"90", "10", "180", "20", "exit"}}
			So(runLoop(ctx, interruptFirst(), p, dev, "yaw"), ShouldBeNil)

			So(dev.moves, ShouldHaveLength, 2)
			out := p.out.String()
			So(out, ShouldContainSubstring, "yaw: aborted")
			So(out, ShouldContainSubstring, "yaw: reached")
			So(strings.Index(out, "aborted"), ShouldBeLessThan, strings.Index(out, "reached"))
		})

		Convey("a cancelled context ends the loop", func() {
			ctx, cancel := context.WithCancel(ctx)
			cancel()
			p := &scriptedPrompt{lines: []string{"90", "10"}}
			So(runLoop(ctx, sameScope, p, dev, "yaw"), ShouldBeNil)
			So(dev.moves, ShouldBeEmpty)
		})
	})
}

func TestInterruptScope(t *testing.T) {
	Convey("an interrupt cancels only the move in progress", t, func() {
		session := context.Background()

		first, stop := interruptScope(session)
		defer stop()

		proc, err := os.FindProcess(os.Getpid())
		So(err, ShouldBeNil)
		So(proc.Signal(os.Interrupt), ShouldBeNil)

		select {
		case <-first.Done():
		case <-time.After(5 * time.Second):
		}
		So(first.Err(), ShouldNotBeNil)
		stop()

		next, stopNext := interruptScope(session)
		defer stopNext()
		So(next.Err(), ShouldBeNil)
		So(session.Err(), ShouldBeNil)
	})
}

func TestMoveCommand(t *testing.T) {
	Convey("move enables then reports the outcome", t, func() {
		dev := newMockDevice()
		var out bytes.Buffer

		So(move(context.Background(), &out, dev, "yaw", hardware.Move{Target: 45, Velocity: 10}), ShouldBeNil)
		So(dev.enabled["yaw"], ShouldBeTrue)
		So(out.String(), ShouldStartWith, "yaw: reached at 45.00 (goal 45.00)")
	})

	Convey("feedback formatting", t, func() {
		So(formatFeedback("yaw", hardware.Feedback{}, false), ShouldEqual, "yaw: no reply")
		So(formatFeedback("yaw", hardware.Feedback{Position: 1, MessageClass: -1, ErrorCode: -1}, true),
			ShouldStartWith, "yaw: position 1.00")
	})
}

const simYaml = `
version: "1.0"
motors:
  pitch:
    family: rmd
    id: 0x141
`

func TestCommandLine(t *testing.T) {
	Convey("commands run against the simulator", t, func() {
		filename := filepath.Join(t.TempDir(), "motors.yaml")
		So(os.WriteFile(filename, []byte(simYaml), 0o644), ShouldBeNil)

		run := func(args ...string) (string, error) {
			conf := &EnvConfig{ENV: "production"}
			root := newRootCmd(conf)
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs(append([]string{"--config", filename, "--sim"}, args...))
			err := root.Execute()
			return out.String(), err
		}

		Convey("list", func() {
			out, err := run("list")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "pitch\n")
		})

		Convey("move", func() {
			out, err := run("move", "pitch", "90", "600")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "pitch: reached")
		})

		Convey("read", func() {
			out, err := run("read", "pitch")
			So(err, ShouldBeNil)
			So(out, ShouldStartWith, "pitch: position 0.00")
		})

		Convey("enable an unknown motor", func() {
			_, err := run("enable", "roll")
			So(err, ShouldBeError, "enable roll: no such motor roll")
		})

		Convey("move with a bad number", func() {
			_, err := run("move", "pitch", "ninety", "10")
			So(err, ShouldBeError, `"ninety" is not a number`)
		})

		Convey("a missing config file", func() {
			conf := &EnvConfig{}
			root := newRootCmd(conf)
			root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "list"})
			So(root.Execute(), ShouldBeError)
		})
	})

	Convey("environment defaults", t, func() {
		os.Unsetenv("MOTOR_CONFIG")
		os.Unsetenv("LOG_LEVEL")
		conf, err := loadEnv()
		So(err, ShouldBeNil)
		So(conf.CONFIG, ShouldEqual, "./motors.yaml")
		So(conf.SIM, ShouldBeFalse)
		So(conf.LEVEL, ShouldEqual, "info")
	})
}
