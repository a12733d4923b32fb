package canbus

import "time"

// CANBusInterface is everything a motor needs from the bus: blocking single
// frame send and receive. Receive never blocks longer than timeout.
//
// Implementations are not demultiplexing: whoever calls Receive gets the next
// frame regardless of its id. Use a Mux to share a bus between handles.
type CANBusInterface interface {
	// Send transmits one frame. false means the frame was not delivered; the
	// caller may try again on its next cycle.
	Send(id uint32, data []byte) bool
	// Receive returns the next frame, or ok == false once timeout elapses.
	Receive(timeout time.Duration) (msg CANMsg, ok bool)
	// Close releases the bus. It is safe to call more than once.
	Close() error
}
