package hardware

import (
	"context"
	"time"

	"github.com/CodedInternet/canmotor/logger"
	"github.com/CodedInternet/canmotor/onboard/canbus"
)

// Motor binds an arbitration id and a family codec to a bus.
//
// The bus is borrowed: its owner must keep it open for as long as the Motor
// is used. Reads consume whatever frame arrives next, so only one Motor may
// use a plain bus at a time; share a bus through canbus.Mux instead.
type Motor struct {
	id        uint32
	replyID   uint32
	name      string
	family    Family
	codec     Codec
	bus       canbus.CANBusInterface
	retries   int
	rxTimeout time.Duration
	settle    time.Duration
	enable    uint8
	disable   uint8
	clock     Clock
	log       logger.Logger

	lastPos float64
}

type MotorOption func(*Motor)

// WithReplyID overrides the family default reply arbitration id.
func WithReplyID(id uint32) MotorOption {
	return func(m *Motor) { m.replyID = id }
}

// WithRetries sets how many receive attempts a read makes before giving up.
func WithRetries(n int) MotorOption {
	return func(m *Motor) {
		if n > 0 {
			m.retries = n
		}
	}
}

// WithReceiveTimeout sets the timeout of each receive attempt.
func WithReceiveTimeout(d time.Duration) MotorOption {
	return func(m *Motor) {
		if d > 0 {
			m.rxTimeout = d
		}
	}
}

// WithSettleDelay sets the pause between the position read and the write of
// families that need a reference position. Zero disables it.
func WithSettleDelay(d time.Duration) MotorOption {
	return func(m *Motor) {
		if d >= 0 {
			m.settle = d
		}
	}
}

// WithStateCodes sets the SetState codes used by Enable and Disable.
func WithStateCodes(enable, disable uint8) MotorOption {
	return func(m *Motor) {
		m.enable, m.disable = enable, disable
	}
}

func WithClock(c Clock) MotorOption {
	return func(m *Motor) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithLogger(l logger.Logger) MotorOption {
	return func(m *Motor) {
		if l != nil {
			m.log = l
		}
	}
}

func NewMotor(bus canbus.CANBusInterface, family Family, id uint32, name string, opts ...MotorOption) *Motor {
	enable, disable := family.StateCodes()
	m := &Motor{
		id:        id,
		replyID:   family.ReplyID(id),
		name:      name,
		family:    family,
		codec:     family.Codec(),
		bus:       bus,
		retries:   CMD_MAX_RETRIES,
		rxTimeout: CMD_RX_TIMEOUT,
		enable:    enable,
		disable:   disable,
		clock:     WallClock(),
		log:       logger.GetLogger(),
	}
	if family.needsReference() {
		m.settle = LK_SETTLE_DELAY
	}

	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("motor", name, "family", family.String(), "id", id)

	return m
}

func (m *Motor) ID() uint32      { return m.id }
func (m *Motor) ReplyID() uint32 { return m.replyID }
func (m *Motor) Name() string    { return m.name }
func (m *Motor) Family() Family  { return m.family }

// SetState sends an opaque state code. The handle does not interpret it.
func (m *Motor) SetState(code uint8) bool {
	ok := m.bus.Send(m.id, m.codec.EncodeState(code))
	if !ok {
		m.log.Warn("set state send failed", "code", code)
	} else {
		m.log.Debug("set state", "code", code)
	}
	return ok
}

func (m *Motor) Enable() bool  { return m.SetState(m.enable) }
func (m *Motor) Disable() bool { return m.SetState(m.disable) }

// WriteTarget sends a position command. For families whose frame depends on
// the current position, a fresh read is made first and cmd.From is replaced
// with the result, or with the last known position if that read fails.
// Cancelling ctx during the settle delay abandons the write.
func (m *Motor) WriteTarget(ctx context.Context, cmd WritePosition) bool {
	if m.family.needsReference() {
		m.ReadFeedback()
		cmd.From = m.lastPos
		if err := m.clock.Sleep(ctx, m.settle); err != nil {
			m.log.Debug("write abandoned", "target", cmd.Target, "err", err)
			return false
		}
	}

	ok := m.bus.Send(m.id, m.codec.EncodeWrite(cmd))
	if !ok {
		m.log.Debug("write send failed", "target", cmd.Target)
	}
	return ok
}

// ReadPosition returns the current position, or the family's no-reading
// sentinel if no valid reply arrived.
func (m *Motor) ReadPosition() float64 {
	fb, _ := m.ReadFeedback()
	return fb.Position
}

// ReadFeedback sends the family's read request and polls for the reply,
// discarding frames from other ids and frames the codec rejects. After
// retries attempts it gives up and returns NoFeedback with ok == false.
//
// Frames already queued when the request is made are dropped first: Bionic
// motors answer every write with a feedback frame, and replies that arrive
// after a read gave up would otherwise answer the next request.
func (m *Motor) ReadFeedback() (fb Feedback, ok bool) {
	m.drain()

	if !m.bus.Send(m.id, m.codec.EncodeRead()) {
		m.log.Debug("read request send failed")
		return NoFeedback(m.family), false
	}

	for i := 0; i < m.retries; i++ {
		msg, received := m.bus.Receive(m.rxTimeout)
		if !received || msg.ID != m.replyID {
			continue
		}

		fb, ok = m.codec.DecodeFeedback(msg.Data)
		if !ok {
			continue
		}

		m.lastPos = fb.Position
		return fb, true
	}

	m.log.Debug("no reply", "attempts", m.retries)
	return NoFeedback(m.family), false
}

// drain empties the receive queue without waiting.
func (m *Motor) drain() {
	stale := 0
	for i := 0; i < CMD_MAX_DRAIN; i++ {
		msg, received := m.bus.Receive(0)
		if !received {
			break
		}
		if msg.ID == m.replyID {
			stale++
		}
	}
	if stale > 0 {
		m.log.Debug("dropped stale replies", "count", stale)
	}
}
