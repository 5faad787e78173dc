package ponggame

import (
	"context"
	"math/rand"
	"time"
)

// Step advances an active match by one tick and returns the slot that
// scored during it, or NoWinner. It is a no-op while the countdown runs or
// once the match is over.
//
// Collisions use fixed bands at each edge instead of the paddles' real
// horizontal extent, and a paddle hit overwrites a wall hit of the same
// tick.
func (st *GameState) Step(cfg Config, rng *rand.Rand) int {
	if st.Phase() != PhaseActive {
		return NoWinner
	}

	b := &st.Ball
	b.X += b.VX
	b.Y += b.VY

	if b.Y <= cfg.PaddleTop || b.Y >= cfg.Height {
		b.VY = -b.VY
		st.Sound = SoundWallHit
	}

	if (b.X <= cfg.EdgeBand && st.overPaddle(0, cfg)) ||
		(b.X >= cfg.Width-cfg.EdgeBand && st.overPaddle(1, cfg)) {
		b.VX = -b.VX
		st.Sound = SoundPaddleHit
	}

	scorer := NoWinner
	switch {
	case b.X < 0:
		scorer = 1
	case b.X > cfg.Width:
		scorer = 0
	}
	if scorer != NoWinner {
		st.Scores[scorer]++
		st.ResetBall(cfg, rng)
	}

	for slot, score := range st.Scores {
		if score >= cfg.WinScore {
			st.finish(slot)
			break
		}
	}
	return scorer
}

// overPaddle reports whether the ball is within the vertical span of the
// paddle of slot, bounds included.
func (st *GameState) overPaddle(slot int, cfg Config) bool {
	top := st.Paddles[slot]
	return st.Ball.Y >= top && st.Ball.Y <= top+cfg.PaddleHeight
}

// advance runs fn on the state under the match lock, unless the match is
// already over, and returns the snapshot to broadcast.
func (m *Match) advance(fn func(st *GameState)) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.GameOver && fn != nil {
		fn(&m.state)
	}
	return m.state.TakeSnapshot(), m.state.GameOver
}

// simulate is the authoritative tick driver. It broadcasts every countdown
// value, then runs the physics at the tick rate until the match ends. A
// match ended from outside (forfeit) still gets one last broadcast carrying
// the winner.
func (m *Match) simulate(ctx context.Context) error {
	defer close(m.simDone)

	snap, over := m.advance(nil)
	m.broadcast(snap)
	if over {
		return nil
	}

	countdown := time.NewTicker(m.cfg.CountdownInterval)
	for snap.Countdown > 0 {
		select {
		case <-ctx.Done():
			countdown.Stop()
			return nil
		case <-m.ended:
		case <-countdown.C:
		}
		snap, over = m.advance(func(st *GameState) {
			st.Countdown--
		})
		m.broadcast(snap)
		if over {
			countdown.Stop()
			return nil
		}
	}
	countdown.Stop()
	m.log.Debugf("Match %s: countdown finished, ball in play", m.ID)

	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.ended:
		case <-ticker.C:
		}
		snap, over = m.advance(func(st *GameState) {
			if scorer := st.Step(m.cfg, m.rng); scorer != NoWinner {
				m.log.Debugf("Match %s: slot %d scored (%d-%d)", m.ID, scorer,
					st.Scores[0], st.Scores[1])
			}
		})
		m.broadcast(snap)
		if over {
			return nil
		}
	}
}
