package hardware

import (
	"context"
	"time"

	"github.com/CodedInternet/canmotor/onboard/canbus"
)

// testBus records what is sent. Scripted replies become readable after the
// next successful Send, as answers to that request. Stale frames are readable
// at once.
type testBus struct {
	txerr   bool
	txCount int
	rxCount int // receives that wait for a frame
	drained int // receives with no timeout
	lastTx  canbus.CANMsg
	sent    []canbus.CANMsg
	pending []canbus.CANMsg
	replies []canbus.CANMsg
}

func (t *testBus) Send(id uint32, data []byte) bool {
	t.txCount++
	t.lastTx = canbus.CANMsg{ID: id, Data: append([]byte(nil), data...)}
	if t.txerr {
		return false
	}
	t.sent = append(t.sent, t.lastTx)
	t.replies = append(t.replies, t.pending...)
	t.pending = nil
	return true
}

func (t *testBus) Receive(timeout time.Duration) (canbus.CANMsg, bool) {
	if timeout == 0 {
		t.drained++
	} else {
		t.rxCount++
	}
	if len(t.replies) == 0 {
		return canbus.CANMsg{}, false
	}
	msg := t.replies[0]
	t.replies = t.replies[1:]
	return msg, true
}

func (t *testBus) Close() error { return nil }

func (t *testBus) reply(id uint32, data ...byte) {
	t.pending = append(t.pending, canbus.CANMsg{ID: id, Data: data})
}

func (t *testBus) stale(id uint32, data ...byte) {
	t.replies = append(t.replies, canbus.CANMsg{ID: id, Data: data})
}

// fakeClock only moves when slept on.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

type reading struct {
	pos float64
	ok  bool
}

func valid(pos float64) reading { return reading{pos: pos, ok: true} }

// scriptedMotor replays readings in order and repeats the last one forever.
type scriptedMotor struct {
	family   Family
	readings []reading
	writes   []WritePosition
	writeErr bool
	reads    int
	onRead   func(n int)
}

func (m *scriptedMotor) Name() string   { return "scripted" }
func (m *scriptedMotor) Family() Family { return m.family }

func (m *scriptedMotor) WriteTarget(ctx context.Context, cmd WritePosition) bool {
	m.writes = append(m.writes, cmd)
	return !m.writeErr
}

func (m *scriptedMotor) ReadFeedback() (Feedback, bool) {
	m.reads++
	if m.onRead != nil {
		m.onRead(m.reads)
	}
	if len(m.readings) == 0 {
		return NoFeedback(m.family), false
	}

	r := m.readings[0]
	if len(m.readings) > 1 {
		m.readings = m.readings[1:]
	}
	if !r.ok {
		return NoFeedback(m.family), false
	}
	return positionOnly(r.pos), true
}
