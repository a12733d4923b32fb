package hardware

import "math"

// WritePosition is a position command in engineering units.
type WritePosition struct {
	Target   float64 // degrees
	Velocity float64 // rpm
	Current  float64 // amps, zero for the family default, ignored without a current limit
	// From is the last known position. LK encodes its direction byte from it,
	// so it must be read before encoding; Motor.WriteTarget does this.
	From float64
}

type CommandKind int

const (
	CMD_SET_STATE CommandKind = iota
	CMD_WRITE_POSITION
	CMD_READ_POSITION
)

// Command is the logical content of a frame sent to a motor.
type Command struct {
	Kind  CommandKind
	State uint8         // CMD_SET_STATE
	Write WritePosition // CMD_WRITE_POSITION
}

// Feedback is a decoded reply. Fields a family does not report hold
// sentinels: -1 for integers, NaN for floats. Position holds the family's
// no-reading sentinel when nothing valid was received.
type Feedback struct {
	MessageClass int
	ErrorCode    int
	Position     float64 // degrees
	Current      float64 // amps
	Temperature  float64 // celsius
}

// NoFeedback returns the all-sentinel Feedback for family f.
func NoFeedback(f Family) Feedback {
	return Feedback{
		MessageClass: -1,
		ErrorCode:    -1,
		Position:     f.NoReading(),
		Current:      math.NaN(),
		Temperature:  math.NaN(),
	}
}

// positionOnly is a Feedback for families that only report position.
func positionOnly(pos float64) Feedback {
	return Feedback{
		MessageClass: -1,
		ErrorCode:    -1,
		Position:     pos,
		Current:      math.NaN(),
		Temperature:  math.NaN(),
	}
}

// Codec is the wire format of one motor family. Codecs do no I/O and every
// payload they produce is exactly PAYLOAD_LENGTH bytes.
type Codec interface {
	Family() Family

	EncodeState(code uint8) []byte
	EncodeWrite(cmd WritePosition) []byte
	EncodeRead() []byte
	// DecodeFeedback parses a reply payload. Short payloads and frames with
	// the wrong reply tag report ok == false and should be discarded.
	DecodeFeedback(data []byte) (fb Feedback, ok bool)

	// Device side of the protocol, used by simulated motors.
	DecodeCommand(data []byte) (cmd Command, ok bool)
	EncodeFeedback(fb Feedback) []byte
}

// EncodeCommand encodes any logical command with c.
func EncodeCommand(c Codec, cmd Command) []byte {
	switch cmd.Kind {
	case CMD_WRITE_POSITION:
		return c.EncodeWrite(cmd.Write)
	case CMD_READ_POSITION:
		return c.EncodeRead()
	default:
		return c.EncodeState(cmd.State)
	}
}
