package canbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	MUX_QUEUE_DEPTH  = 32
	MUX_PUMP_TIMEOUT = 10 * time.Millisecond
)

// Mux shares one bus between several handles. A single pump goroutine owns
// Receive on the underlying bus and routes each frame into the queue
// registered for its arbitration id. Frames for unregistered ids are dropped.
type Mux struct {
	bus     CANBusInterface
	queues  *xsync.MapOf[uint32, chan CANMsg]
	txLock  sync.Mutex
	depth   int
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
}

func NewMux(bus CANBusInterface) *Mux {
	m := &Mux{
		bus:    bus,
		queues: xsync.NewMapOf[uint32, chan CANMsg](),
		depth:  MUX_QUEUE_DEPTH,
		done:   make(chan struct{}),
	}

	m.wg.Add(1)
	go m.pump()

	return m
}

// Listen returns a view of the bus that only receives frames addressed to ids.
// Sends go straight to the shared bus. Closing the view does not close the bus.
func (m *Mux) Listen(ids ...uint32) CANBusInterface {
	q := make(chan CANMsg, m.depth)
	for _, id := range ids {
		m.queues.Store(id, q)
	}
	return &muxPort{mux: m, ids: ids, rx: q}
}

// Dropped counts frames discarded because nobody listened or a queue was full.
func (m *Mux) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Mux) send(id uint32, data []byte) bool {
	m.txLock.Lock()
	defer m.txLock.Unlock()
	return m.bus.Send(id, data)
}

func (m *Mux) pump() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		default:
		}

		msg, ok := m.bus.Receive(MUX_PUMP_TIMEOUT)
		if !ok {
			continue
		}

		q, ok := m.queues.Load(msg.ID)
		if !ok {
			m.dropped.Add(1)
			continue
		}

		select {
		case q <- msg:
		default:
			m.dropped.Add(1)
		}
	}
}

// Close stops the pump and closes the underlying bus.
func (m *Mux) Close() (err error) {
	m.once.Do(func() {
		close(m.done)
		m.wg.Wait()
		err = m.bus.Close()
	})
	return
}

type muxPort struct {
	mux    *Mux
	ids    []uint32
	rx     chan CANMsg
	closed atomic.Bool
}

func (p *muxPort) Send(id uint32, data []byte) bool {
	if p.closed.Load() {
		return false
	}
	return p.mux.send(id, data)
}

func (p *muxPort) Receive(timeout time.Duration) (msg CANMsg, ok bool) {
	if p.closed.Load() {
		return msg, false
	}

	select {
	case msg = <-p.rx:
		return msg, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg = <-p.rx:
		return msg, true
	case <-timer.C:
		return msg, false
	case <-p.mux.done:
		return msg, false
	}
}

func (p *muxPort) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	for _, id := range p.ids {
		p.mux.queues.Compute(id, func(q chan CANMsg, loaded bool) (chan CANMsg, bool) {
			// only remove our own queue, a later Listen may have taken the id
			return q, !loaded || q == p.rx
		})
	}
	return nil
}
