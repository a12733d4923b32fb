package hardware

import (
	"math"
	"strings"
	"time"

	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
)

// Family is one of the supported motor product lines, each with its own wire
// format.
type Family int

const (
	LK Family = iota
	RMD
	Bionic
)

const (
	LK_NO_READING     = -1.0
	RMD_NO_READING    = 0.0
	BIONIC_NO_READING = -100000.0
	BIONIC_LOST_BELOW = -50000.0

	RMD_REPLY_OFFSET = 0x100
)

var familyNames = [...]string{LK: "lk", RMD: "rmd", Bionic: "bionic"}

var familyAliases = map[string]Family{
	"lk":           LK,
	"lktech":       LK,
	"rmd":          RMD,
	"rmd-standard": RMD,
	"bionic":       Bionic,
	"rmd-bionic":   Bionic,
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return "unknown"
	}
	return familyNames[f]
}

// ParseFamily accepts a family name as written in config files.
func ParseFamily(name string) (Family, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	f, ok := familyAliases[key]
	if !ok {
		return 0, devErrors.FamilyNameError{Name: name}
	}
	return f, nil
}

func (f *Family) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}

	parsed, err := ParseFamily(name)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (f Family) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

func (f Family) Codec() Codec {
	switch f {
	case RMD:
		return rmdCodec{}
	case Bionic:
		return bionicCodec{}
	default:
		return lkCodec{}
	}
}

// NoReading is the position sentinel reported when a read fails.
func (f Family) NoReading() float64 {
	switch f {
	case RMD:
		return RMD_NO_READING
	case Bionic:
		return BIONIC_NO_READING
	default:
		return LK_NO_READING
	}
}

// IsNoReading reports whether pos is the family's failed read sentinel rather
// than a measurement. RMD's sentinel is a valid angle, so for RMD callers must
// rely on the ok result of Motor.ReadFeedback.
func (f Family) IsNoReading(pos float64) bool {
	if math.IsNaN(pos) {
		return true
	}
	switch f {
	case LK:
		return pos < -0.9
	case Bionic:
		return pos < BIONIC_LOST_BELOW
	default:
		return false
	}
}

// ReplyID is the arbitration id replies to request id arrive on by default.
func (f Family) ReplyID(id uint32) uint32 {
	if f == RMD {
		return id + RMD_REPLY_OFFSET
	}
	return id
}

// StateCodes are the default enable and disable SetState codes.
func (f Family) StateCodes() (enable, disable uint8) {
	if f == RMD {
		return 0x88, 0x80
	}
	return 0x01, 0x00
}

// needsReference reports whether writes must know the current position.
func (f Family) needsReference() bool {
	return f == LK
}

// Policy is the default move-and-monitor policy for the family.
func (f Family) Policy() Policy {
	switch f {
	case RMD:
		return Policy{
			Tolerance:    1.0,
			PollInterval: 50 * time.Millisecond,
			Timeout:      10 * time.Second,
			Sustained:    true,
		}
	case Bionic:
		return Policy{
			Tolerance:    1.0,
			PollInterval: 200 * time.Millisecond,
			Timeout:      15 * time.Second,
			Sustained:    true,
		}
	default:
		return Policy{
			Tolerance:    1.0,
			PollInterval: 20 * time.Millisecond,
			Timeout:      15 * time.Second,
			SingleTurn:   true,
		}
	}
}
