package ponggame

import (
	"errors"
	"fmt"
	"time"
)

// Board and timing defaults.
const (
	DefaultWidth          = 800
	DefaultHeight         = 600
	DefaultBallSpeed      = 5
	DefaultPaddleSpeed    = 10
	DefaultPaddleHeight   = 100
	DefaultPaddleTop      = 60
	DefaultPaddleStart    = 250
	DefaultEdgeBand       = 40
	DefaultCountdownStart = 3
	DefaultWinScore       = 10

	// The bot only reacts when the ball leaves [paddle+45, paddle+55],
	// a band much narrower than the paddle, so it can be beaten.
	DefaultBotReactLow  = 45
	DefaultBotReactHigh = 55

	// MaxInputSize is the largest payload read from a client at once.
	MaxInputSize = 64
)

// Config holds every tunable of a match. It is passed by value to each
// component at construction and never changed afterwards.
type Config struct {
	Width          int
	Height         int
	BallSpeed      int
	PaddleSpeed    int
	PaddleHeight   int
	PaddleTop      int
	PaddleStart    int
	EdgeBand       int
	CountdownStart int
	WinScore       int

	BotReactLow  int
	BotReactHigh int

	CountdownInterval time.Duration
	TickInterval      time.Duration
	BotWaitInterval   time.Duration
	BotInterval       time.Duration
	PollInterval      time.Duration
	AcceptTimeout     time.Duration
	EndDelay          time.Duration
}

// DefaultConfig returns the classic 800x600 board played to 10.
func DefaultConfig() Config {
	return Config{
		Width:          DefaultWidth,
		Height:         DefaultHeight,
		BallSpeed:      DefaultBallSpeed,
		PaddleSpeed:    DefaultPaddleSpeed,
		PaddleHeight:   DefaultPaddleHeight,
		PaddleTop:      DefaultPaddleTop,
		PaddleStart:    DefaultPaddleStart,
		EdgeBand:       DefaultEdgeBand,
		CountdownStart: DefaultCountdownStart,
		WinScore:       DefaultWinScore,

		BotReactLow:  DefaultBotReactLow,
		BotReactHigh: DefaultBotReactHigh,

		CountdownInterval: time.Second,
		TickInterval:      16 * time.Millisecond,
		BotWaitInterval:   100 * time.Millisecond,
		BotInterval:       16 * time.Millisecond,
		PollInterval:      100 * time.Millisecond,
		AcceptTimeout:     5 * time.Second,
		EndDelay:          5 * time.Second,
	}
}

// PaddleMin is the smallest paddle position.
func (c Config) PaddleMin() int { return c.PaddleTop }

// PaddleMax is the largest paddle position.
func (c Config) PaddleMax() int { return c.Height - c.PaddleHeight }

// Validate reports the first inconsistency found in c.
func (c Config) Validate() error {
	switch {
	case c.Width <= 2*c.EdgeBand:
		return fmt.Errorf("board width %d too small for edge band %d", c.Width, c.EdgeBand)
	case c.PaddleMin() > c.PaddleMax():
		return fmt.Errorf("paddle of height %d does not fit between %d and %d",
			c.PaddleHeight, c.PaddleTop, c.Height)
	case c.PaddleStart < c.PaddleMin() || c.PaddleStart > c.PaddleMax():
		return fmt.Errorf("paddle start %d outside [%d, %d]", c.PaddleStart, c.PaddleMin(), c.PaddleMax())
	case c.BallSpeed <= 0 || c.PaddleSpeed <= 0:
		return errors.New("ball and paddle speed must be positive")
	case c.CountdownStart < 0:
		return errors.New("countdown must not be negative")
	case c.WinScore <= 0:
		return errors.New("win score must be positive")
	case c.BotReactLow > c.BotReactHigh:
		return fmt.Errorf("bot react band [%d, %d] is inverted", c.BotReactLow, c.BotReactHigh)
	case c.CountdownInterval <= 0 || c.TickInterval <= 0 || c.BotInterval <= 0 ||
		c.BotWaitInterval <= 0 || c.PollInterval <= 0:
		return errors.New("intervals must be positive")
	case c.BotInterval > c.TickInterval:
		return fmt.Errorf("bot interval %v slower than tick interval %v", c.BotInterval, c.TickInterval)
	case c.AcceptTimeout <= 0:
		return errors.New("accept timeout must be positive")
	case c.EndDelay < 0:
		return errors.New("end delay must not be negative")
	}
	return nil
}
