package ponggame

import (
	"context"
	"time"

	"github.com/decred/slog"
)

// WaitingRoom seats incoming connections into the slots of a match. Slot 0
// waits as long as it takes; slot 1 waits AcceptTimeout and then falls back
// to the bot.
type WaitingRoom struct {
	incoming <-chan Conn
	timeout  time.Duration
	log      slog.Logger
}

// NewWaitingRoom returns a waiting room fed by incoming.
func NewWaitingRoom(incoming <-chan Conn, timeout time.Duration, log slog.Logger) *WaitingRoom {
	if log == nil {
		log = slog.Disabled
	}
	return &WaitingRoom{
		incoming: incoming,
		timeout:  timeout,
		log:      log,
	}
}

// Fill seats both slots of m. It only fails when ctx is done, in which case
// connections already seated stay with m and are closed by m.Close.
func (wr *WaitingRoom) Fill(ctx context.Context, m *Match) error {
	wr.log.Infof("Waiting for player 0...")
	for {
		conn, err := wr.next(ctx, nil)
		if err != nil {
			return err
		}
		if wr.seat(m, 0, conn) {
			break
		}
	}

	wr.log.Infof("Waiting for player 1 (%v)...", wr.timeout)
	timer := time.NewTimer(wr.timeout)
	defer timer.Stop()
	for {
		conn, err := wr.next(ctx, timer.C)
		if err != nil {
			return err
		}
		if conn == nil {
			wr.log.Infof("Player 1 did not show up, starting the bot")
			_, err := m.JoinBot()
			return err
		}
		if wr.seat(m, 1, conn) {
			return nil
		}
	}
}

// next returns the next connection, nil if timeout fired first, or the
// context error.
func (wr *WaitingRoom) next(ctx context.Context, timeout <-chan time.Time) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, nil
	case conn := <-wr.incoming:
		return conn, nil
	}
}

func (wr *WaitingRoom) seat(m *Match, slot int, conn Conn) bool {
	if _, err := m.Join(slot, conn); err != nil {
		wr.log.Warnf("Dropping connection from %s: %v", conn.RemoteAddr(), err)
		conn.Close()
		return false
	}
	return true
}
