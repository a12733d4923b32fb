package onboard

import (
	"fmt"
	"os"
	"time"

	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
	"github.com/CodedInternet/canmotor/onboard/hardware"
	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v2"
)

const (
	CONFIG_VERSION = "~1.0"
	DEFAULT_BUS    = "can0"
)

// RigConfig describes one bus and the motors attached to it.
type RigConfig struct {
	Version string                 `yaml:"version"`
	Bus     string                 `yaml:"bus"`
	Motors  map[string]MotorConfig `yaml:"motors"`
}

// MotorConfig holds a motor's addressing and any overrides of its family
// defaults. Zero values keep the default.
type MotorConfig struct {
	Family         hardware.Family `yaml:"family"`
	ID             uint32          `yaml:"id"`
	ReplyID        uint32          `yaml:"reply_id,omitempty"`
	Enable         *uint8          `yaml:"enable,omitempty"`
	Disable        *uint8          `yaml:"disable,omitempty"`
	Tolerance      float64         `yaml:"tolerance,omitempty"`
	PollIntervalMS int             `yaml:"poll_interval_ms,omitempty"`
	TimeoutMS      int             `yaml:"timeout_ms,omitempty"`
	Current        float64         `yaml:"current,omitempty"`
}

func LoadRigConfig(filename string) (*RigConfig, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}
	return ParseRigConfig(raw)
}

func ParseRigConfig(raw []byte) (*RigConfig, error) {
	var config RigConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the config version and that no two motors would answer on
// the same id.
func (c *RigConfig) Validate() error {
	version, err := semver.NewVersion(c.Version)
	if err != nil {
		return devErrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}
	}

	constraint, err := semver.NewConstraint(CONFIG_VERSION)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return devErrors.ConfigVersionError{Version: c.Version, Constraint: CONFIG_VERSION}
	}

	if len(c.Motors) == 0 {
		return ERR_NO_MOTORS
	}
	if c.Bus == "" {
		c.Bus = DEFAULT_BUS
	}

	replies := make(map[uint32]string, len(c.Motors))
	for name, mc := range c.Motors {
		id := mc.Reply()
		if other, ok := replies[id]; ok {
			return fmt.Errorf("motors %s and %s both reply on id 0x%03x", other, name, id)
		}
		replies[id] = name
	}
	return nil
}

// Reply is the id replies are expected on.
func (mc MotorConfig) Reply() uint32 {
	if mc.ReplyID != 0 {
		return mc.ReplyID
	}
	return mc.Family.ReplyID(mc.ID)
}

// Policy is the family policy with this motor's overrides applied.
func (mc MotorConfig) Policy() hardware.Policy {
	p := mc.Family.Policy()
	if mc.Tolerance > 0 {
		p.Tolerance = mc.Tolerance
	}
	if mc.PollIntervalMS > 0 {
		p.PollInterval = time.Duration(mc.PollIntervalMS) * time.Millisecond
	}
	if mc.TimeoutMS > 0 {
		p.Timeout = time.Duration(mc.TimeoutMS) * time.Millisecond
	}
	return p
}

// StateCodes are the enable and disable codes with overrides applied.
func (mc MotorConfig) StateCodes() (enable, disable uint8) {
	enable, disable = mc.Family.StateCodes()
	if mc.Enable != nil {
		enable = *mc.Enable
	}
	if mc.Disable != nil {
		disable = *mc.Disable
	}
	return
}
