//go:build !linux

package canbus

import (
	"errors"
	"time"

	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
)

var ERR_UNSUPPORTED_PLATFORM = errors.New("SocketCAN is only available on linux")

// CANBus is unavailable off linux; use a LoopbackBus with the simulator instead.
type CANBus struct {
	name string
}

func NewCANBus(ifname string) (bus *CANBus, err error) {
	return nil, &devErrors.BusOpenError{Name: ifname, Err: ERR_UNSUPPORTED_PLATFORM}
}

func (c *CANBus) Name() string { return c.name }

func (c *CANBus) Send(id uint32, data []byte) bool { return false }

func (c *CANBus) Receive(timeout time.Duration) (msg CANMsg, ok bool) { return msg, false }

func (c *CANBus) Close() error { return nil }
