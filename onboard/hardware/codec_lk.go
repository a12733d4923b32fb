package hardware

import "encoding/binary"

// lkCodec speaks the LK-tech protocol: little-endian fixed point fields
// behind a one byte command.
//
//	byte 0    command
//	byte 1    direction, 1 when moving towards a lower angle
//	byte 2-3  |rpm| * 216, u16
//	byte 4-7  degrees * 3600, i32
type lkCodec struct{}

func (lkCodec) Family() Family { return LK }

func (lkCodec) EncodeState(code uint8) []byte {
	return newPayload(code)
}

func (lkCodec) EncodeWrite(cmd WritePosition) []byte {
	p := newPayload(LK_CMD_WRITE_POSITION)
	if cmd.Target < cmd.From {
		p[1] = 1
	}
	binary.LittleEndian.PutUint16(p[2:4], uint16(scaleUnsigned(cmd.Velocity, LK_VELOCITY_SCALE, 16)))
	putInt32LE(p[4:8], scaleSigned32(cmd.Target, LK_POSITION_SCALE))
	return p
}

func (lkCodec) EncodeRead() []byte {
	return newPayload(LK_CMD_READ_POSITION)
}

func (lkCodec) DecodeFeedback(data []byte) (Feedback, bool) {
	if len(data) < PAYLOAD_LENGTH || data[0] != LK_CMD_READ_POSITION {
		return NoFeedback(LK), false
	}
	return positionOnly(float64(int32LE(data[4:8])) / LK_POSITION_SCALE), true
}

func (lkCodec) DecodeCommand(data []byte) (cmd Command, ok bool) {
	if len(data) < PAYLOAD_LENGTH {
		return cmd, false
	}

	switch data[0] {
	case LK_CMD_WRITE_POSITION:
		cmd.Kind = CMD_WRITE_POSITION
		cmd.Write.Target = float64(int32LE(data[4:8])) / LK_POSITION_SCALE
		cmd.Write.Velocity = float64(binary.LittleEndian.Uint16(data[2:4])) / LK_VELOCITY_SCALE
	case LK_CMD_READ_POSITION:
		cmd.Kind = CMD_READ_POSITION
	default:
		cmd.Kind = CMD_SET_STATE
		cmd.State = data[0]
	}
	return cmd, true
}

func (lkCodec) EncodeFeedback(fb Feedback) []byte {
	p := newPayload(LK_CMD_READ_POSITION)
	putInt32LE(p[4:8], scaleSigned32(fb.Position, LK_POSITION_SCALE))
	return p
}
