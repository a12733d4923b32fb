package hardware

import (
	"math"
)

// bionicCodec packs fields into a single big-endian 64 bit word with no
// regard for byte boundaries. Offsets count from the most significant bit.
//
// Command:  header 0-2 | float32 degrees 3-34 | rpm*10 35-49 | amps*10 50-61 | footer 62-63
// Feedback: class 0-2 | error 3-7 | float32 degrees 8-39 | amps*100 40-55 | temp*2+50 56-63
type bionicCodec struct{}

func (bionicCodec) Family() Family { return Bionic }

func (bionicCodec) EncodeState(code uint8) []byte {
	return newPayload(code)
}

// EncodeWrite uses BIONIC_DEFAULT_CURRENT when cmd.Current is zero.
func (bionicCodec) EncodeWrite(cmd WritePosition) []byte {
	cur := cmd.Current
	if cur == 0 {
		cur = BIONIC_DEFAULT_CURRENT
	}

	var word uint64
	word = putBits(word, bionicHeaderBits, bionicHeaderWidth, BIONIC_HEADER)
	word = putBits(word, bionicPosBits, bionicPosWidth, uint64(math.Float32bits(float32(cmd.Target))))
	word = putBits(word, bionicVelBits, bionicVelWidth, scaleUnsigned(cmd.Velocity, BIONIC_VELOCITY_SCALE, bionicVelWidth))
	word = putBits(word, bionicCurBits, bionicCurWidth, scaleUnsigned(cur, BIONIC_CURRENT_SCALE, bionicCurWidth))
	word = putBits(word, bionicFooterBits, bionicFooterWidth, BIONIC_FOOTER)

	return wordToPayload(word)
}

func (bionicCodec) EncodeRead() []byte {
	p := newPayload(BIONIC_CMD_READ)
	p[3] = BIONIC_READ_FLAG
	return p
}

func (bionicCodec) DecodeFeedback(data []byte) (Feedback, bool) {
	if len(data) < PAYLOAD_LENGTH {
		return NoFeedback(Bionic), false
	}
	word := payloadToWord(data)

	pos := math.Float32frombits(uint32(getBits(word, bionicFbPosBits, bionicFbPosWidth)))
	cur := float64(getBits(word, bionicFbCurBits, bionicFbCurWidth)) / BIONIC_FB_CURRENT_SCALE
	temp := (float64(getBits(word, bionicTempBits, bionicTempWidth)) - BIONIC_TEMP_OFFSET) / BIONIC_TEMP_SCALE

	return Feedback{
		MessageClass: int(getBits(word, bionicClassBits, bionicClassWidth)),
		ErrorCode:    int(getBits(word, bionicErrBits, bionicErrWidth)),
		Position:     roundTo(float64(pos), 1),
		Current:      roundTo(cur, 2),
		Temperature:  roundTo(temp, 1),
	}, true
}

func (bionicCodec) DecodeCommand(data []byte) (cmd Command, ok bool) {
	if len(data) < PAYLOAD_LENGTH {
		return cmd, false
	}

	if data[0] == BIONIC_CMD_READ && data[3] == BIONIC_READ_FLAG {
		cmd.Kind = CMD_READ_POSITION
		return cmd, true
	}

	word := payloadToWord(data)
	if getBits(word, bionicHeaderBits, bionicHeaderWidth) == BIONIC_HEADER &&
		getBits(word, bionicFooterBits, bionicFooterWidth) == BIONIC_FOOTER {
		cmd.Kind = CMD_WRITE_POSITION
		cmd.Write.Target = float64(math.Float32frombits(uint32(getBits(word, bionicPosBits, bionicPosWidth))))
		cmd.Write.Velocity = float64(getBits(word, bionicVelBits, bionicVelWidth)) / BIONIC_VELOCITY_SCALE
		cmd.Write.Current = float64(getBits(word, bionicCurBits, bionicCurWidth)) / BIONIC_CURRENT_SCALE
		return cmd, true
	}

	cmd.Kind = CMD_SET_STATE
	cmd.State = data[0]
	return cmd, true
}

func (bionicCodec) EncodeFeedback(fb Feedback) []byte {
	var word uint64
	word = putBits(word, bionicClassBits, bionicClassWidth, nonNegative(fb.MessageClass))
	word = putBits(word, bionicErrBits, bionicErrWidth, nonNegative(fb.ErrorCode))
	word = putBits(word, bionicFbPosBits, bionicFbPosWidth, uint64(math.Float32bits(float32(fb.Position))))
	word = putBits(word, bionicFbCurBits, bionicFbCurWidth, scaleUnsigned(fb.Current, BIONIC_FB_CURRENT_SCALE, bionicFbCurWidth))
	word = putBits(word, bionicTempBits, bionicTempWidth, tempRaw(fb.Temperature))
	return wordToPayload(word)
}

func nonNegative(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// tempRaw inverts the (raw-50)/2 temperature scaling, clamped to a byte.
func tempRaw(c float64) uint64 {
	raw := math.Round(c*BIONIC_TEMP_SCALE + BIONIC_TEMP_OFFSET)
	switch {
	case math.IsNaN(raw), raw < 0:
		return 0
	case raw > math.MaxUint8:
		return math.MaxUint8
	}
	return uint64(raw)
}
