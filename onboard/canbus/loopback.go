package canbus

import (
	"sync"
	"time"
)

// Responder plays the part of a device on a LoopbackBus. Every frame sent on
// the bus is offered to it and the frames it returns are queued for Receive.
type Responder interface {
	Respond(msg CANMsg) []CANMsg
}

type ResponderFunc func(msg CANMsg) []CANMsg

func (f ResponderFunc) Respond(msg CANMsg) []CANMsg { return f(msg) }

// LoopbackBus is an in-memory bus used for simulation and tests.
type LoopbackBus struct {
	lock       sync.Mutex
	responders []Responder
	sent       []CANMsg
	rx         chan CANMsg
	done       chan struct{}
	once       sync.Once
}

// NewLoopbackBus creates a bus whose receive queue holds depth frames. Frames
// arriving on a full queue are dropped, as a real controller would overrun.
func NewLoopbackBus(depth int) *LoopbackBus {
	if depth <= 0 {
		depth = 64
	}
	return &LoopbackBus{
		rx:   make(chan CANMsg, depth),
		done: make(chan struct{}),
	}
}

func (b *LoopbackBus) Attach(r Responder) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.responders = append(b.responders, r)
}

// Inject queues msg as if it had arrived from another node.
func (b *LoopbackBus) Inject(msg CANMsg) bool {
	if len(msg.Data) > msgMaxLength {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.rx <- msg:
		return true
	default:
		return false
	}
}

func (b *LoopbackBus) Send(id uint32, data []byte) bool {
	if len(data) > msgMaxLength {
		return false
	}
	select {
	case <-b.done:
		return false
	default:
	}

	msg := CANMsg{ID: id, Data: append([]byte(nil), data...)}

	b.lock.Lock()
	b.sent = append(b.sent, msg)
	responders := append([]Responder(nil), b.responders...)
	b.lock.Unlock()

	for _, r := range responders {
		for _, reply := range r.Respond(msg) {
			b.Inject(reply)
		}
	}
	return true
}

func (b *LoopbackBus) Receive(timeout time.Duration) (msg CANMsg, ok bool) {
	select {
	case msg = <-b.rx:
		return msg, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg = <-b.rx:
		return msg, true
	case <-timer.C:
		return msg, false
	case <-b.done:
		return msg, false
	}
}

// Sent returns a copy of every frame sent so far.
func (b *LoopbackBus) Sent() []CANMsg {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]CANMsg(nil), b.sent...)
}

func (b *LoopbackBus) Close() error {
	b.once.Do(func() { close(b.done) })
	return nil
}
