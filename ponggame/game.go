package ponggame

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
)

// NewMatch creates a match with a freshly reset state. The match lives
// until Close; cancelling ctx stops its simulation and bot early.
func NewMatch(ctx context.Context, cfg Config, log slog.Logger, rng *rand.Rand) *Match {
	if log == nil {
		log = slog.Disabled
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	ctx, cancel := context.WithCancel(ctx)
	m := &Match{
		ID:      uuid.New().String(),
		cfg:     cfg,
		log:     log,
		rng:     rng,
		simDone: make(chan struct{}),
		ended:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	m.state.Reset(cfg, rng)
	return m
}

// Config returns the configuration the match was built with.
func (m *Match) Config() Config {
	return m.cfg
}

// Join seats a human connection in slot, announces the slot to the peer and
// starts reading its input.
func (m *Match) Join(slot int, conn Conn) (*Session, error) {
	if slot < 0 || slot >= NumSlots {
		return nil, ErrBadSlot
	}
	if m.started.Load() {
		return nil, ErrMatchStarted
	}
	if m.sessions[slot] != nil || (m.bot != nil && m.bot.Slot == slot) {
		return nil, ErrSlotTaken
	}

	s := newSession(slot, conn, m.log)
	if err := s.Send(HandshakeMessage(slot)); err != nil {
		return nil, fmt.Errorf("handshake with %s: %w", conn.RemoteAddr(), err)
	}
	m.sessions[slot] = s
	m.connected[slot].Store(true)
	m.g.Go(func() error {
		return s.run(m)
	})
	m.log.Infof("Match %s: player %s joined slot %d from %s", m.ID, s.ID, slot,
		conn.RemoteAddr())
	return s, nil
}

// JoinBot seats the bot in slot 1 and starts it.
func (m *Match) JoinBot() (*Bot, error) {
	const slot = 1
	if m.started.Load() {
		return nil, ErrMatchStarted
	}
	if m.sessions[slot] != nil || m.bot != nil {
		return nil, ErrSlotTaken
	}
	b := &Bot{Slot: slot, m: m, log: m.log}
	m.bot = b
	m.connected[slot].Store(true)
	m.g.Go(func() error {
		return b.Run(m.ctx)
	})
	m.log.Infof("Match %s: bot took slot %d", m.ID, slot)
	return b, nil
}

// HasBot reports whether slot 1 is played by the bot.
func (m *Match) HasBot() bool {
	return m.bot != nil
}

// Connected reports the liveness flag of slot.
func (m *Match) Connected(slot int) bool {
	return m.connected[slot].Load()
}

// Start launches the simulation. Both slots must be occupied.
func (m *Match) Start() error {
	for slot := range m.sessions {
		if m.sessions[slot] == nil && !(m.bot != nil && m.bot.Slot == slot) {
			return fmt.Errorf("slot %d is empty", slot)
		}
	}
	if !m.started.CompareAndSwap(false, true) {
		return ErrMatchStarted
	}
	m.g.Go(func() error {
		return m.simulate(m.ctx)
	})
	return nil
}

// ApplyInput moves the paddle of slot. Inputs are ignored once the match is
// over.
func (m *Match) ApplyInput(slot int, in Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.GameOver {
		return
	}
	m.state.MovePaddle(slot, in, m.cfg)
}

// Forfeit ends the match against slot. It reports whether this call ended
// the match.
func (m *Match) Forfeit(slot int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.forfeitLocked(slot)
}

func (m *Match) forfeitLocked(slot int) bool {
	if !m.state.Forfeit(slot) {
		return false
	}
	m.endOnce.Do(func() { close(m.ended) })
	return true
}

// State returns a copy of the current game state.
func (m *Match) State() GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current snapshot without consuming the sound event.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Snapshot()
}

// broadcast sends snap to every live session. A failed send only flags the
// slot as disconnected.
func (m *Match) broadcast(snap Snapshot) {
	var encoded [numEncodings][]byte
	for slot, s := range m.sessions {
		if s == nil || !m.connected[slot].Load() {
			continue
		}
		enc := s.conn.Encoding()
		if encoded[enc] == nil {
			b, err := snap.Encode(enc)
			if err != nil {
				m.log.Errorf("Match %s: %v", m.ID, err)
				continue
			}
			encoded[enc] = b
		}
		if err := s.Send(encoded[enc]); err != nil {
			m.connected[slot].Store(false)
			m.log.Debugf("Match %s: send to slot %d failed: %v", m.ID, slot, err)
		}
	}
}

// WaitDone blocks until the match ends, either by score or because a slot
// lost its connection, and returns the outcome once the final snapshot has
// been broadcast. A disconnected slot forfeits.
func (m *Match) WaitDone(ctx context.Context) (Result, error) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if m.checkDone() {
			break
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
	}

	if m.started.Load() {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-m.simDone:
		}
	}

	st := m.State()
	return Result{
		MatchID: m.ID,
		Winner:  st.Winner,
		Scores:  st.Scores,
		Forfeit: st.Scores[st.Winner] < m.cfg.WinScore,
	}, nil
}

func (m *Match) checkDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.GameOver {
		return true
	}
	for slot := range m.connected {
		if !m.connected[slot].Load() {
			m.forfeitLocked(slot)
			m.log.Infof("Match %s: slot %d lost its connection", m.ID, slot)
			return true
		}
	}
	return false
}

// Close stops every goroutine of the match and closes both connections.
// Errors from connections that are already gone are ignored.
func (m *Match) Close() error {
	m.closing.Store(true)
	m.cancel()
	for slot, s := range m.sessions {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			m.log.Tracef("Match %s: closing slot %d: %v", m.ID, slot, err)
		}
		m.connected[slot].Store(false)
	}
	if m.bot != nil {
		m.connected[m.bot.Slot].Store(false)
	}
	if err := m.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
