package ponggame

import (
	"math/rand"
	"strings"
)

// Reset puts the state back to the start of a match.
func (st *GameState) Reset(cfg Config, rng *rand.Rand) {
	for i := range st.Paddles {
		st.Paddles[i] = cfg.PaddleStart
	}
	st.Scores = [NumSlots]int{}
	st.ResetBall(cfg, rng)
	st.Countdown = cfg.CountdownStart
	st.GameOver = false
	st.Winner = NoWinner
	st.Sound = SoundNone
}

// ResetBall centers the ball and picks a new diagonal direction. Scores and
// paddles are left alone.
func (st *GameState) ResetBall(cfg Config, rng *rand.Rand) {
	st.Ball = Ball{
		X:  cfg.Width / 2,
		Y:  cfg.Height / 2,
		VX: cfg.BallSpeed * randomSign(rng),
		VY: cfg.BallSpeed * randomSign(rng),
	}
}

func randomSign(rng *rand.Rand) int {
	if rng.Intn(2) == 0 {
		return -1
	}
	return 1
}

// Phase reports where the match is in its lifecycle.
func (st *GameState) Phase() Phase {
	switch {
	case st.GameOver:
		return PhaseFinished
	case st.Countdown > 0:
		return PhaseCountdown
	default:
		return PhaseActive
	}
}

// MovePaddle applies one paddle step for slot, clamped to the board.
func (st *GameState) MovePaddle(slot int, in Input, cfg Config) {
	switch in {
	case InputUp:
		st.Paddles[slot] = max(cfg.PaddleMin(), st.Paddles[slot]-cfg.PaddleSpeed)
	case InputDown:
		st.Paddles[slot] = min(cfg.PaddleMax(), st.Paddles[slot]+cfg.PaddleSpeed)
	}
}

// finish ends the match with winner. Only the first call has an effect.
func (st *GameState) finish(winner int) bool {
	if st.GameOver {
		return false
	}
	st.GameOver = true
	st.Winner = winner
	return true
}

// Forfeit ends the match in favor of the slot opposite to loser. It returns
// false if the match was already over.
func (st *GameState) Forfeit(loser int) bool {
	return st.finish(1 - loser)
}

// TakeSnapshot copies the state for broadcasting and consumes the pending
// sound event.
func (st *GameState) TakeSnapshot() Snapshot {
	snap := st.Snapshot()
	st.Sound = SoundNone
	return snap
}

// Snapshot copies the state without consuming the sound event.
func (st *GameState) Snapshot() Snapshot {
	snap := Snapshot{
		Paddles: make(map[int]int, NumSlots),
		Ball: BallSnapshot{
			X:  st.Ball.X,
			Y:  st.Ball.Y,
			VX: st.Ball.VX,
			VY: st.Ball.VY,
		},
		Scores:    st.Scores,
		Countdown: max(st.Countdown, 0),
	}
	for slot, y := range st.Paddles {
		snap.Paddles[slot] = y
	}
	if st.GameOver {
		winner := st.Winner
		snap.Winner = &winner
	}
	if st.Sound != SoundNone {
		sound := st.Sound
		snap.SoundEvent = &sound
	}
	return snap
}

// ParseInputs extracts the paddle commands from one client payload. Tokens
// are separated by whitespace and must match exactly; everything else is
// dropped.
func ParseInputs(payload []byte) []Input {
	var inputs []Input
	for _, tok := range strings.Fields(string(payload)) {
		switch Input(tok) {
		case InputUp, InputDown:
			inputs = append(inputs, Input(tok))
		}
	}
	return inputs
}
