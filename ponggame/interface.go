package ponggame

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/decred/slog"
	"golang.org/x/sync/errgroup"
)

// NumSlots is the number of player slots in a match.
const NumSlots = 2

// NoWinner is the Winner value of a match that has not ended.
const NoWinner = -1

var (
	// ErrSlotTaken is returned when joining an occupied slot.
	ErrSlotTaken = errors.New("slot already occupied")
	// ErrBadSlot is returned for slot ids outside [0, NumSlots).
	ErrBadSlot = errors.New("invalid slot")
	// ErrMatchStarted is returned when seating players after Start.
	ErrMatchStarted = errors.New("match already started")
)

// Input is a paddle command sent by a client.
type Input string

const (
	InputUp   Input = "UP"
	InputDown Input = "DOWN"
)

// SoundEvent tags the collision of the current tick.
type SoundEvent string

const (
	SoundNone      SoundEvent = ""
	SoundWallHit   SoundEvent = "wall_hit"
	SoundPaddleHit SoundEvent = "platform_hit"
)

// Phase is the simulation state derived from a GameState.
type Phase int

const (
	PhaseCountdown Phase = iota
	PhaseActive
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	}
	return "unknown"
}

// Conn is the transport of one connected player. ReadInput blocks until the
// peer sends something or the connection fails.
type Conn interface {
	ReadInput() ([]byte, error)
	Send(b []byte) error
	Close() error
	Encoding() Encoding
	RemoteAddr() string
}

// Ball is the ball position in pixels and velocity in pixels per tick.
type Ball struct {
	X, Y   int
	VX, VY int
}

// GameState is the shared mutable record of one match. It is only ever
// accessed under Match.mu.
type GameState struct {
	Paddles   [NumSlots]int
	Ball      Ball
	Scores    [NumSlots]int
	Countdown int
	GameOver  bool
	Winner    int
	Sound     SoundEvent
}

// Session is a human player bound to a slot.
type Session struct {
	ID   string
	Slot int

	conn Conn
	log  slog.Logger

	sendMu   sync.Mutex
	dropOnce sync.Once
}

// Bot drives the paddle of slot 1 when no second player showed up.
type Bot struct {
	Slot int

	m   *Match
	log slog.Logger
}

// Match owns the game state and the two slots of one game.
type Match struct {
	ID string

	cfg Config
	log slog.Logger

	// mu guards state and rng.
	mu    sync.Mutex
	state GameState
	rng   *rand.Rand

	sessions  [NumSlots]*Session
	bot       *Bot
	connected [NumSlots]atomic.Bool

	started atomic.Bool
	closing atomic.Bool
	simDone chan struct{}

	// ended is closed when the match is decided outside the simulation.
	ended   chan struct{}
	endOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	g      errgroup.Group
}

// Result summarizes a finished match.
type Result struct {
	MatchID string
	Winner  int
	Scores  [NumSlots]int
	Forfeit bool
}
