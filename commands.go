package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	. "github.com/CodedInternet/canmotor/onboard"
	"github.com/CodedInternet/canmotor/onboard/hardware"
	"github.com/spf13/cobra"
)

// withDevice opens the rig for one command and closes it afterwards.
func withDevice(conf *EnvConfig, fn func(dev Device) error) error {
	dev, err := openDevice(conf)
	if err != nil {
		return err
	}
	defer dev.Close()
	return fn(dev)
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseNumbers(args []string) ([]float64, error) {
	values := make([]float64, len(args))
	for i, arg := range args {
		v, ok := parseNumber(arg)
		if !ok {
			return nil, fmt.Errorf("%q is not a number", arg)
		}
		values[i] = v
	}
	return values, nil
}

// parseMove reads "<deg> <rpm> [amp]".
func parseMove(args []string) (mv hardware.Move, err error) {
	if len(args) < 2 || len(args) > 3 {
		return mv, fmt.Errorf("expected <deg> <rpm> [amp], got %d values", len(args))
	}
	values, err := parseNumbers(args)
	if err != nil {
		return mv, err
	}

	mv.Target, mv.Velocity = values[0], values[1]
	if len(values) == 3 {
		mv.Current = values[2]
	}
	return mv, nil
}

func formatOutcome(name string, out hardware.Outcome) string {
	return fmt.Sprintf("%s: %s at %.2f (goal %.2f) after %d polls, %d lost, %s",
		name, out.Result, out.Position, out.Target, out.Iterations, out.Lost, out.Elapsed)
}

func formatFeedback(name string, fb hardware.Feedback, ok bool) string {
	if !ok {
		return fmt.Sprintf("%s: no reply", name)
	}
	return fmt.Sprintf("%s: position %.2f current %.2f temperature %.1f class %d error %d",
		name, fb.Position, fb.Current, fb.Temperature, fb.MessageClass, fb.ErrorCode)
}

// move enables the motor and runs one supervised move.
func move(ctx context.Context, w io.Writer, dev Device, name string, mv hardware.Move) error {
	if err := dev.Enable(name); err != nil {
		return err
	}
	out, err := dev.Move(ctx, name, mv)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, formatOutcome(name, out))
	return nil
}

func newMoveCmd(conf *EnvConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "move <motor> <deg> <rpm> [amp]",
		Short: "Move a motor to an absolute position and wait for it",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			mv, err := parseMove(args[1:])
			if err != nil {
				return err
			}
			return withDevice(conf, func(dev Device) error {
				return move(cmd.Context(), cmd.OutOrStdout(), dev, args[0], mv)
			})
		},
	}
}

func newReadCmd(conf *EnvConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "read <motor>...",
		Short: "Read motor feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(conf, func(dev Device) error {
				for _, name := range args {
					fb, ok, err := dev.Read(name)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), formatFeedback(name, fb, ok))
				}
				return nil
			})
		},
	}
}

func newStateCmd(conf *EnvConfig, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <motor>...",
		Short: strings.ToUpper(action[:1]) + action[1:] + " motors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(conf, func(dev Device) error {
				for _, name := range args {
					set := dev.Enable
					if action == "disable" {
						set = dev.Disable
					}
					if err := set(name); err != nil {
						return fmt.Errorf("%s %s: %w", action, name, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", name, action)
				}
				return nil
			})
		},
	}
}

func newListCmd(conf *EnvConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured motors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDevice(conf, func(dev Device) error {
				for _, name := range dev.Names() {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			})
		},
	}
}
