package canbus

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	msgMaxLength = 8
	frameSize    = 16 // sizeof(struct can_frame)

	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x000007ff
	CAN_EFF_MASK = 0x1fffffff
)

// errors
var (
	ERR_DATA_TOO_LONG = errors.New("data length exceeds 8 bytes")
	ERR_BUS_CLOSED    = errors.New("bus is closed")
)

type CANMsg struct {
	ID   uint32 // arbitration id, 11 bit standard or 29 bit extended
	Data []byte // raw data up to eight bytes. DLC is taken from len(Data).
}

// Extended reports whether the id needs a 29 bit extended frame.
func (msg CANMsg) Extended() bool {
	return msg.ID&CAN_EFF_MASK != msg.ID&CAN_SFF_MASK
}

func (msg CANMsg) String() string {
	return fmt.Sprintf("0x%03x [%d] % x", msg.ID, len(msg.Data), msg.Data)
}

// toByteArray encodes msg in the SocketCAN struct can_frame layout.
func (msg *CANMsg) toByteArray() (raw []byte, err error) {
	if len(msg.Data) > msgMaxLength {
		return nil, ERR_DATA_TOO_LONG
	}

	raw = make([]byte, frameSize)

	oid := msg.ID & CAN_EFF_MASK
	if msg.Extended() {
		oid |= CAN_EFF_FLAG
	}
	binary.LittleEndian.PutUint32(raw[0:4], oid)

	raw[4] = byte(len(msg.Data))
	copy(raw[8:], msg.Data)

	return raw, nil
}

// msgFromByteArray decodes a struct can_frame. Error and remote frames are
// not data for anybody and report ok == false.
func msgFromByteArray(raw []byte) (msg CANMsg, ok bool) {
	if len(raw) < frameSize {
		return msg, false
	}

	oid := binary.LittleEndian.Uint32(raw[0:4])
	if oid&(CAN_ERR_FLAG|CAN_RTR_FLAG) != 0 {
		return msg, false
	}

	if oid&CAN_EFF_FLAG != 0 {
		msg.ID = oid & CAN_EFF_MASK
	} else {
		msg.ID = oid & CAN_SFF_MASK
	}

	dataLength := int(raw[4])
	if dataLength > msgMaxLength {
		dataLength = msgMaxLength
	}
	msg.Data = make([]byte, dataLength)
	copy(msg.Data, raw[8:8+dataLength])

	return msg, true
}
