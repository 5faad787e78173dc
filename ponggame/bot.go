package ponggame

import (
	"context"
	"time"
)

// Decide returns the move the bot makes for a ball at ballY against a paddle
// at paddleY, or "" to hold. The react band is narrower than the paddle so
// the bot can be beaten.
func Decide(cfg Config, ballY, paddleY int) Input {
	switch {
	case ballY < paddleY+cfg.BotReactLow:
		return InputUp
	case ballY > paddleY+cfg.BotReactHigh:
		return InputDown
	}
	return ""
}

// Run waits for the countdown to finish and then tracks the ball until the
// match is over or ctx is done. The bot has no failure mode of its own.
func (b *Bot) Run(ctx context.Context) error {
	if !b.waitForKickoff(ctx) {
		return nil
	}
	b.log.Debugf("Match %s: bot in play", b.m.ID)

	ticker := time.NewTicker(b.m.cfg.BotInterval)
	defer ticker.Stop()
	for {
		if !b.step() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// waitForKickoff polls until the countdown reaches zero. It returns false
// if the match ended or ctx was cancelled first.
func (b *Bot) waitForKickoff(ctx context.Context) bool {
	ticker := time.NewTicker(b.m.cfg.BotWaitInterval)
	defer ticker.Stop()
	for {
		st := b.m.State()
		if st.GameOver {
			return false
		}
		if st.Countdown <= 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// step applies one bot move and reports whether the match is still on.
func (b *Bot) step() bool {
	m := b.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.GameOver {
		return false
	}
	if in := Decide(m.cfg, m.state.Ball.Y, m.state.Paddles[b.Slot]); in != "" {
		m.state.MovePaddle(b.Slot, in, m.cfg)
	}
	return true
}
