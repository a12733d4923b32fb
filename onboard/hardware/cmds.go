package hardware

import "time"

// Command and reply tag bytes.
const (
	LK_CMD_WRITE_POSITION  = 0xA6
	LK_CMD_READ_POSITION   = 0x94
	RMD_CMD_WRITE_POSITION = 0xA4
	RMD_CMD_READ_POSITION  = 0x92 // multi-turn position, also the reply tag
	BIONIC_CMD_READ        = 0x0E
	BIONIC_READ_FLAG       = 0x01 // byte 3 of a Bionic read request
)

// Bionic packed frame layout, bit offsets from the MSB of the 64 bit word.
const (
	BIONIC_HEADER = 0b001
	BIONIC_FOOTER = 0b10

	bionicHeaderBits, bionicHeaderWidth = 0, 3
	bionicPosBits, bionicPosWidth       = 3, 32
	bionicVelBits, bionicVelWidth       = 35, 15
	bionicCurBits, bionicCurWidth       = 50, 12
	bionicFooterBits, bionicFooterWidth = 62, 2

	bionicClassBits, bionicClassWidth = 0, 3
	bionicErrBits, bionicErrWidth     = 3, 5
	bionicFbPosBits, bionicFbPosWidth = 8, 32
	bionicFbCurBits, bionicFbCurWidth = 40, 16
	bionicTempBits, bionicTempWidth   = 56, 8

	BIONIC_DEFAULT_CURRENT = 5.0
)

// Fixed point scale factors, engineering unit to raw.
const (
	LK_POSITION_SCALE  = 3600.0
	LK_VELOCITY_SCALE  = 6.0 * 36.0
	RMD_POSITION_SCALE = 100.0
	RMD_VELOCITY_SCALE = 6.0

	BIONIC_VELOCITY_SCALE   = 10.0
	BIONIC_CURRENT_SCALE    = 10.0
	BIONIC_FB_CURRENT_SCALE = 100.0
	BIONIC_TEMP_OFFSET      = 50.0
	BIONIC_TEMP_SCALE       = 2.0
)

const (
	CMD_MAX_RETRIES = 20
	CMD_MAX_DRAIN   = 64 // stale frames discarded before a read request
	CMD_RX_TIMEOUT  = 10 * time.Millisecond
	LK_SETTLE_DELAY = 100 * time.Millisecond
)
