package hardware

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	PAYLOAD_LENGTH = 8
	wordBits       = 64
)

// newPayload returns a zeroed 8 byte frame with cmd in byte 0.
func newPayload(cmd byte) []byte {
	p := make([]byte, PAYLOAD_LENGTH)
	p[0] = cmd
	return p
}

// roundTo rounds v to places decimals, halves away from zero.
func roundTo(v float64, places int) float64 {
	return mgl64.Round(v, places)
}

// scaleUnsigned converts |v|*factor to a width bit unsigned field. The value is
// rounded first and then wraps modulo 2^width, the same as masking the integer.
func scaleUnsigned(v, factor float64, width uint) uint64 {
	raw := math.Round(math.Abs(v) * factor)
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	return uint64(math.Mod(raw, float64(uint64(1)<<width)))
}

// scaleSigned32 converts v*factor to a rounded int32, saturating at the type limits.
func scaleSigned32(v, factor float64) int32 {
	raw := math.Round(v * factor)
	switch {
	case math.IsNaN(raw):
		return 0
	case raw >= math.MaxInt32:
		return math.MaxInt32
	case raw <= math.MinInt32:
		return math.MinInt32
	}
	return int32(raw)
}

func putInt32LE(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

func int32LE(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// Bit fields are addressed MSB first: offset 0 is the top bit of the 64 bit
// big-endian word, i.e. bit 7 of payload byte 0.

func putBits(word uint64, offset, width uint, value uint64) uint64 {
	shift := wordBits - offset - width
	mask := uint64(1)<<width - 1
	return word&^(mask<<shift) | (value&mask)<<shift
}

func getBits(word uint64, offset, width uint) uint64 {
	shift := wordBits - offset - width
	return word >> shift & (uint64(1)<<width - 1)
}

func wordToPayload(word uint64) []byte {
	p := make([]byte, PAYLOAD_LENGTH)
	binary.BigEndian.PutUint64(p, word)
	return p
}

func payloadToWord(p []byte) uint64 {
	return binary.BigEndian.Uint64(p[:PAYLOAD_LENGTH])
}

// wrapTurn normalises deg into [0, 360).
func wrapTurn(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	return w
}

// clampTurn keeps a single turn target inside [1, 359], away from the zero
// crossing. Negative targets become 1 and targets past a turn become 359.
func clampTurn(deg float64) float64 {
	return mgl64.Clamp(deg, 1, 359)
}
