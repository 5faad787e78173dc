package ponggame

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameState_Reset(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(1))

	st := GameState{
		Paddles:   [NumSlots]int{60, 500},
		Scores:    [NumSlots]int{7, 9},
		Countdown: 0,
		GameOver:  true,
		Winner:    1,
		Sound:     SoundWallHit,
	}
	st.Reset(cfg, rng)

	assert.Equal(t, [NumSlots]int{250, 250}, st.Paddles)
	assert.Equal(t, [NumSlots]int{0, 0}, st.Scores)
	assert.Equal(t, 400, st.Ball.X)
	assert.Equal(t, 300, st.Ball.Y)
	assert.Equal(t, 5, abs(st.Ball.VX))
	assert.Equal(t, 5, abs(st.Ball.VY))
	assert.Equal(t, 3, st.Countdown)
	assert.False(t, st.GameOver)
	assert.Equal(t, NoWinner, st.Winner)
	assert.Equal(t, SoundNone, st.Sound)
	assert.Equal(t, PhaseCountdown, st.Phase())
}

func TestGameState_ResetBallDirections(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(42))

	seen := make(map[[2]int]bool)
	st := GameState{Paddles: [NumSlots]int{100, 400}, Scores: [NumSlots]int{3, 4}}
	for i := 0; i < 200; i++ {
		st.ResetBall(cfg, rng)
		seen[[2]int{st.Ball.VX, st.Ball.VY}] = true
	}

	// All four diagonals show up, nothing else is touched.
	assert.Len(t, seen, 4)
	assert.Equal(t, [NumSlots]int{100, 400}, st.Paddles)
	assert.Equal(t, [NumSlots]int{3, 4}, st.Scores)
}

func TestGameState_MovePaddle(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		start int
		input Input
		want  int
	}{
		{name: "up from start", start: 250, input: InputUp, want: 240},
		{name: "down from start", start: 250, input: InputDown, want: 260},
		{name: "up floored", start: 65, input: InputUp, want: 60},
		{name: "up at floor", start: 60, input: InputUp, want: 60},
		{name: "down capped", start: 495, input: InputDown, want: 500},
		{name: "down at cap", start: 500, input: InputDown, want: 500},
		{name: "unknown input", start: 250, input: Input("LEFT"), want: 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := GameState{Paddles: [NumSlots]int{tt.start, 250}}
			st.MovePaddle(0, tt.input, cfg)
			assert.Equal(t, tt.want, st.Paddles[0])
			assert.Equal(t, 250, st.Paddles[1])
		})
	}
}

func TestGameState_MovePaddleStaysInBounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	inputs := []Input{InputUp, InputDown}

	var st GameState
	st.Reset(cfg, rng)
	for i := 0; i < 10000; i++ {
		slot := rng.Intn(NumSlots)
		st.MovePaddle(slot, inputs[rng.Intn(2)], cfg)
		for _, y := range st.Paddles {
			require.GreaterOrEqual(t, y, cfg.PaddleMin())
			require.LessOrEqual(t, y, cfg.PaddleMax())
		}
	}
}

func TestGameState_Forfeit(t *testing.T) {
	cfg := DefaultConfig()
	var st GameState
	st.Reset(cfg, rand.New(rand.NewSource(1)))

	assert.True(t, st.Forfeit(1))
	assert.True(t, st.GameOver)
	assert.Equal(t, 0, st.Winner)
	assert.Equal(t, PhaseFinished, st.Phase())

	// The winner is set once.
	assert.False(t, st.Forfeit(0))
	assert.False(t, st.Forfeit(1))
	assert.Equal(t, 0, st.Winner)
}

func TestGameState_SnapshotWinner(t *testing.T) {
	cfg := DefaultConfig()
	var st GameState
	st.Reset(cfg, rand.New(rand.NewSource(1)))

	snap := st.Snapshot()
	assert.Nil(t, snap.Winner)
	assert.False(t, snap.Over())

	st.Forfeit(0)
	snap = st.Snapshot()
	require.NotNil(t, snap.Winner)
	assert.Equal(t, 1, *snap.Winner)
	assert.True(t, snap.Over())
}

func TestGameState_TakeSnapshotConsumesSound(t *testing.T) {
	st := GameState{Sound: SoundPaddleHit, Countdown: -2, Winner: NoWinner}

	snap := st.TakeSnapshot()
	require.NotNil(t, snap.SoundEvent)
	assert.Equal(t, SoundPaddleHit, *snap.SoundEvent)
	assert.Equal(t, 0, snap.Countdown)
	assert.Equal(t, SoundNone, st.Sound)

	snap = st.TakeSnapshot()
	assert.Nil(t, snap.SoundEvent)
}

func TestParseInputs(t *testing.T) {
	tests := []struct {
		payload string
		want    []Input
	}{
		{payload: "UP", want: []Input{InputUp}},
		{payload: "DOWN\n", want: []Input{InputDown}},
		{payload: "UP\nDOWN\nUP", want: []Input{InputUp, InputDown, InputUp}},
		{payload: "up", want: nil},
		{payload: "UPUP", want: nil},
		{payload: "", want: nil},
		{payload: "JUMP UP", want: []Input{InputUp}},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInputs([]byte(tt.payload)))
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
