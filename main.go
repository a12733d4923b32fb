package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/CodedInternet/canmotor/logger"
	. "github.com/CodedInternet/canmotor/onboard"
	"github.com/caarlos0/env/v6"
	"github.com/spf13/cobra"
)

type EnvConfig struct {
	CONFIG string `env:"MOTOR_CONFIG" envDefault:"./motors.yaml"`
	BUS    string `env:"MOTOR_BUS"`
	SIM    bool   `env:"MOTOR_SIM" envDefault:"0"`
	DEBUG  bool   `env:"DEBUG" envDefault:"0"`
	LEVEL  string `env:"LOG_LEVEL" envDefault:"info"`
	ENV    string `env:"ENV" envDefault:"production"`
}

// loadEnv reads the environment; flags set on the command line win.
func loadEnv() (*EnvConfig, error) {
	conf := new(EnvConfig)
	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("unable to read environment: %w", err)
	}
	return conf, nil
}

func setupLogger(conf *EnvConfig) {
	level := logger.ParseLevel(conf.LEVEL)
	if conf.DEBUG {
		level = logger.DebugLevel
	}
	logger.SetLogger(logger.NewSlog(os.Stderr, level, conf.ENV == "development"))
}

// openDevice builds the rig described by the config file, on the simulator
// when requested.
func openDevice(conf *EnvConfig) (Device, error) {
	config, err := LoadRigConfig(conf.CONFIG)
	if err != nil {
		return nil, err
	}
	if conf.BUS != "" {
		config.Bus = conf.BUS
	}

	if !conf.SIM {
		return NewRig(config)
	}

	logger.Info("using simulated motors", "motors", len(config.Motors))
	sim := NewSimulator(config, time.Now)
	return NewRig(config, WithRigBus(sim.Bus()))
}

func newRootCmd(conf *EnvConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "canmotor",
		Short:         "Drive LK and RMD motors over a CAN bus",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogger(conf)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&conf.CONFIG, "config", conf.CONFIG, "rig config file (MOTOR_CONFIG)")
	flags.StringVar(&conf.BUS, "bus", conf.BUS, "override the configured bus interface (MOTOR_BUS)")
	flags.BoolVar(&conf.SIM, "sim", conf.SIM, "run against simulated motors (MOTOR_SIM)")
	flags.BoolVar(&conf.DEBUG, "debug", conf.DEBUG, "debug logging (DEBUG)")

	root.AddCommand(
		newMoveCmd(conf),
		newReadCmd(conf),
		newStateCmd(conf, "enable"),
		newStateCmd(conf, "disable"),
		newListCmd(conf),
		newShellCmd(conf),
	)
	return root
}

func main() {
	conf, err := loadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(conf).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
