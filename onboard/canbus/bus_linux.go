//go:build linux

package canbus

import (
	"net"
	"sync"
	"time"

	devErrors "github.com/CodedInternet/canmotor/onboard/errors"
	"golang.org/x/sys/unix"
)

// CANBus is a raw SocketCAN socket bound to one interface.
type CANBus struct {
	fd   int
	name string
	lock sync.Mutex
	open bool
}

// NewCANBus opens and binds a raw CAN socket on ifname, e.g. "can0".
func NewCANBus(ifname string) (bus *CANBus, err error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, &devErrors.BusOpenError{Name: ifname, Err: err}
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, &devErrors.BusOpenError{Name: ifname, Err: err}
	}

	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err = unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, &devErrors.BusOpenError{Name: ifname, Err: err}
	}

	return &CANBus{fd: fd, name: ifname, open: true}, nil
}

func (c *CANBus) Name() string {
	return c.name
}

func (c *CANBus) Send(id uint32, data []byte) bool {
	raw, err := (&CANMsg{ID: id, Data: data}).toByteArray()
	if err != nil {
		return false
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.open {
		return false
	}

	n, err := unix.Write(c.fd, raw)
	return err == nil && n == len(raw)
}

func (c *CANBus) Receive(timeout time.Duration) (msg CANMsg, ok bool) {
	c.lock.Lock()
	fd, open := c.fd, c.open
	c.lock.Unlock()
	if !open {
		return msg, false
	}

	deadline := time.Now().Add(timeout)
	raw := make([]byte, frameSize)
	for {
		wait := time.Until(deadline)
		if wait < 0 {
			wait = 0
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, int(wait/time.Millisecond))
		if err == unix.EINTR {
			continue
		}
		if err != nil || n == 0 {
			return msg, false
		}

		if _, err = unix.Read(fd, raw); err != nil {
			return msg, false
		}
		if msg, ok = msgFromByteArray(raw); ok {
			return msg, true
		}

		// error or remote frame, keep waiting for data until the deadline
		if !time.Now().Before(deadline) {
			return msg, false
		}
	}
}

func (c *CANBus) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.open {
		return nil
	}
	c.open = false
	return unix.Close(c.fd)
}
