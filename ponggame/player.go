package ponggame

import (
	"fmt"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

func newSession(slot int, conn Conn, log slog.Logger) *Session {
	return &Session{
		ID:   uuid.New().String(),
		Slot: slot,
		conn: conn,
		log:  log,
	}
}

// Conn returns the transport of the session.
func (s *Session) Conn() Conn {
	return s.conn
}

// ReceiveInput blocks until the peer sends a payload and returns the paddle
// commands found in it, possibly none. Any transport error means the peer
// is gone.
func (s *Session) ReceiveInput() ([]Input, error) {
	b, err := s.conn.ReadInput()
	if err != nil {
		return nil, err
	}
	return ParseInputs(b), nil
}

// Send writes b to the peer. Sends are serialized so a handshake and a
// broadcast never interleave on the wire.
func (s *Session) Send(b []byte) error {
	if s == nil {
		return fmt.Errorf("nil session")
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.conn.Send(b)
}

// Close closes the transport.
func (s *Session) Close() error {
	return s.conn.Close()
}

// run reads input until the connection fails. The lock is only taken to
// apply a command, never while blocked on the read.
func (s *Session) run(m *Match) error {
	for {
		inputs, err := s.ReceiveInput()
		if err != nil {
			s.drop(m, err)
			return nil
		}
		for _, in := range inputs {
			m.ApplyInput(s.Slot, in)
		}
	}
}

// drop marks the session dead and forfeits the match on its behalf. It acts
// at most once per session.
func (s *Session) drop(m *Match, cause error) {
	s.dropOnce.Do(func() {
		m.connected[s.Slot].Store(false)
		if m.closing.Load() {
			s.log.Tracef("Match %s: slot %d reader stopped: %v", m.ID, s.Slot, cause)
			return
		}
		if m.Forfeit(s.Slot) {
			s.log.Infof("Match %s: slot %d disconnected (%v), slot %d wins by forfeit",
				m.ID, s.Slot, cause, 1-s.Slot)
		} else {
			s.log.Debugf("Match %s: slot %d disconnected after the match ended", m.ID, s.Slot)
		}
	})
}
