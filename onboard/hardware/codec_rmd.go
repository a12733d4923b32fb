package hardware

import "encoding/binary"

// rmdCodec speaks the standard RMD protocol. Replies come back on the
// request id plus RMD_REPLY_OFFSET.
//
//	byte 0    command
//	byte 1    0x00 for negative velocity, 0x01 otherwise
//	byte 2-3  |rpm| * 6, u16
//	byte 4-7  degrees * 100, i32
type rmdCodec struct{}

func (rmdCodec) Family() Family { return RMD }

func (rmdCodec) EncodeState(code uint8) []byte {
	return newPayload(code)
}

func (rmdCodec) EncodeWrite(cmd WritePosition) []byte {
	p := newPayload(RMD_CMD_WRITE_POSITION)
	if cmd.Velocity >= 0 {
		p[1] = 0x01
	}
	binary.LittleEndian.PutUint16(p[2:4], uint16(scaleUnsigned(cmd.Velocity, RMD_VELOCITY_SCALE, 16)))
	putInt32LE(p[4:8], scaleSigned32(cmd.Target, RMD_POSITION_SCALE))
	return p
}

func (rmdCodec) EncodeRead() []byte {
	return newPayload(RMD_CMD_READ_POSITION)
}

func (rmdCodec) DecodeFeedback(data []byte) (Feedback, bool) {
	if len(data) < PAYLOAD_LENGTH || data[0] != RMD_CMD_READ_POSITION {
		return NoFeedback(RMD), false
	}
	return positionOnly(float64(int32LE(data[4:8])) / RMD_POSITION_SCALE), true
}

func (rmdCodec) DecodeCommand(data []byte) (cmd Command, ok bool) {
	if len(data) < PAYLOAD_LENGTH {
		return cmd, false
	}

	switch data[0] {
	case RMD_CMD_WRITE_POSITION:
		cmd.Kind = CMD_WRITE_POSITION
		cmd.Write.Target = float64(int32LE(data[4:8])) / RMD_POSITION_SCALE
		cmd.Write.Velocity = float64(binary.LittleEndian.Uint16(data[2:4])) / RMD_VELOCITY_SCALE
		if data[1] == 0x00 {
			cmd.Write.Velocity = -cmd.Write.Velocity
		}
	case RMD_CMD_READ_POSITION:
		cmd.Kind = CMD_READ_POSITION
	default:
		cmd.Kind = CMD_SET_STATE
		cmd.State = data[0]
	}
	return cmd, true
}

func (rmdCodec) EncodeFeedback(fb Feedback) []byte {
	p := newPayload(RMD_CMD_READ_POSITION)
	putInt32LE(p[4:8], scaleSigned32(fb.Position, RMD_POSITION_SCALE))
	return p
}
