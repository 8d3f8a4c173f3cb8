package e2e

import (
	"fmt"
	"io"
)

// Transport distinguishes TCP's reliable-ordered delivery from UDP's
// best-effort delivery, which changes how a length mismatch and a
// receive timeout are handled (§9 Open Question: E2E transport).
type Transport int

const (
	TransportTCP Transport = iota
	TransportUDP
)

// Logger is the minimal logging surface ReceiveLane needs for the
// length-mismatch warning on UDP.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// ReceiveLane tracks the expected next sequence_number for one
// destination Worker's frame stream (§4.K "checks sequence_number ==
// previous+1 for its lane").
type ReceiveLane struct {
	transport Transport
	logger    Logger
	next      uint64
	started   bool
}

// NewReceiveLane constructs a lane for one destination Worker.
func NewReceiveLane(transport Transport, logger Logger) *ReceiveLane {
	return &ReceiveLane{transport: transport, logger: logger}
}

// ErrProtocol marks a non-recoverable protocol violation: out-of-order
// sequence, or a length mismatch on TCP.
type ErrProtocol struct {
	Reason string
}

func (e *ErrProtocol) Error() string { return fmt.Sprintf("e2e: protocol error: %s", e.Reason) }

// Accept validates one received frame against the lane's sequence state
// and the caller's expected I/O size. Returns (accept=false, nil) for a
// silently-dropped duplicate (a sequence number below the next expected
// one, i.e. already accepted).
func (l *ReceiveLane) Accept(hdr Header, expectedIOSize uint64) (accept bool, err error) {
	if hdr.Magic == MagicEOF {
		return true, nil
	}

	if hdr.Length != expectedIOSize {
		msg := fmt.Sprintf("length mismatch: got %d want %d", hdr.Length, expectedIOSize)
		if l.transport == TransportUDP {
			if l.logger != nil {
				l.logger.Warnf("e2e: %s", msg)
			}
		} else {
			return false, &ErrProtocol{Reason: msg}
		}
	}

	if !l.started {
		l.started = true
		l.next = hdr.SequenceNumber + 1
		return true, nil
	}

	if hdr.SequenceNumber < l.next {
		// Duplicate of an already-accepted frame.
		return false, nil
	}
	if hdr.SequenceNumber != l.next {
		return false, &ErrProtocol{Reason: fmt.Sprintf("out-of-order sequence: got %d want %d", hdr.SequenceNumber, l.next)}
	}

	l.next = hdr.SequenceNumber + 1
	return true, nil
}

// DrainEOFs reads exactly n EOF frames from r, the destination-side
// quiescence signal the source Target Thread sends once per destination
// Worker at pass end.
func DrainEOFs(r io.Reader, n int) error {
	buf := make([]byte, 0)
	for i := 0; i < n; i++ {
		hdr, _, err := ReadFrame(r, buf)
		if err != nil {
			return fmt.Errorf("e2e: drain EOF %d/%d: %w", i+1, n, err)
		}
		if hdr.Magic != MagicEOF {
			return &ErrProtocol{Reason: fmt.Sprintf("expected EOF frame, got magic 0x%x", uint32(hdr.Magic))}
		}
	}
	return nil
}
