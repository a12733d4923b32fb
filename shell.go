package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/CodedInternet/canmotor/logger"
	. "github.com/CodedInternet/canmotor/onboard"
	"github.com/CodedInternet/canmotor/onboard/hardware"
	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"
)

// prompter is the part of an ishell context the interactive loop needs.
type prompter interface {
	Print(val ...interface{})
	Println(val ...interface{})
	ReadLine() string
}

func isExit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "quit":
		return true
	}
	return false
}

// promptNumber asks until it gets a number. ok is false when the user asked
// to leave.
func promptNumber(p prompter, label string) (v float64, ok bool) {
	for {
		p.Print(label)
		line := p.ReadLine()
		if isExit(line) {
			return 0, false
		}
		if v, ok = parseNumber(line); ok {
			return v, true
		}
		p.Println("not a number: " + strings.TrimSpace(line))
	}
}

// moveScope derives the context of one move from the session context.
type moveScope func(parent context.Context) (context.Context, context.CancelFunc)

// interruptScope lets Ctrl-C abort the running move without ending the
// session.
func interruptScope(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

// runLoop is the interactive move loop: target and velocity are prompted for
// and each move is supervised to completion until the user exits.
func runLoop(ctx context.Context, scope moveScope, p prompter, dev Device, name string) error {
	if err := dev.Enable(name); err != nil {
		return err
	}
	defer dev.Disable(name)

	p.Println(name + " is ready. Type 'exit' to quit.")
	for ctx.Err() == nil {
		target, ok := promptNumber(p, "target position (deg): ")
		if !ok {
			break
		}
		velocity, ok := promptNumber(p, "velocity (rpm): ")
		if !ok {
			break
		}

		mctx, stop := scope(ctx)
		out, err := dev.Move(mctx, name, hardware.Move{Target: target, Velocity: velocity})
		stop()
		if err != nil {
			return err
		}
		p.Println(formatOutcome(name, out))
	}
	return nil
}

// newShell builds the interactive shell. ctx ends the session; each move runs
// under its own context from scope.
func newShell(ctx context.Context, scope moveScope, dev Device) *ishell.Shell {
	names := func([]string) []string { return dev.Names() }

	shell := ishell.New()
	shell.Println("canmotor shell, motors: " + strings.Join(dev.Names(), ", "))

	shell.AddCmd(&ishell.Cmd{
		Name:      "move",
		Help:      "move <motor> <deg> <rpm> [amp]",
		Completer: names,
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Println("usage: move <motor> <deg> <rpm> [amp]")
				return
			}
			mv, err := parseMove(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			mctx, stop := scope(ctx)
			defer stop()
			out, err := dev.Move(mctx, c.Args[0], mv)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(formatOutcome(c.Args[0], out))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "step",
		Help:      "step <motor> <deg> <rpm> [amp], move relative to the current position",
		Completer: names,
		Func: func(c *ishell.Context) {
			if len(c.Args) < 3 {
				c.Println("usage: step <motor> <deg> <rpm> [amp]")
				return
			}
			mv, err := parseMove(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			mctx, stop := scope(ctx)
			defer stop()
			out, err := dev.MoveRelative(mctx, c.Args[0], mv.Target, mv.Velocity, mv.Current)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(formatOutcome(c.Args[0], out))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "read",
		Help:      "read <motor>",
		Completer: names,
		Func: func(c *ishell.Context) {
			for _, name := range c.Args {
				fb, ok, err := dev.Read(name)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(formatFeedback(name, fb, ok))
			}
		},
	})

	for _, action := range []string{"enable", "disable"} {
		shell.AddCmd(&ishell.Cmd{
			Name:      action,
			Help:      action + " <motor>",
			Completer: names,
			Func: func(c *ishell.Context) {
				for _, name := range c.Args {
					set := dev.Enable
					if action == "disable" {
						set = dev.Disable
					}
					if err := set(name); err != nil {
						c.Err(err)
						return
					}
				}
			},
		})
	}

	shell.AddCmd(&ishell.Cmd{
		Name:      "run",
		Help:      "run <motor>, prompt for targets until exit",
		Completer: names,
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: run <motor>")
				return
			}

			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			if err := runLoop(ctx, scope, c, dev, c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	})

	return shell
}

func newShellCmd(conf *EnvConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(conf, func(dev Device) error {
				logger.Debug("starting shell")
				// Ctrl-C during a move only aborts that move
				session := context.WithoutCancel(cmd.Context())
				newShell(session, interruptScope, dev).Start()
				return nil
			})
		},
	}
}
