package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/lordikys4/ping-pong/ponggame"
	"golang.org/x/sync/errgroup"
)

// stream is one server connection seen as a sequence of messages.
type stream interface {
	readMessage() ([]byte, error)
	write(b []byte) error
	close() error
}

type tcpStream struct {
	c net.Conn
	r *bufio.Reader
}

func (t *tcpStream) readMessage() ([]byte, error) {
	return t.r.ReadBytes('\n')
}

func (t *tcpStream) write(b []byte) error {
	_, err := t.c.Write(b)
	return err
}

func (t *tcpStream) close() error {
	return t.c.Close()
}

type wsStream struct {
	c *websocket.Conn
}

func (w *wsStream) readMessage() ([]byte, error) {
	_, b, err := w.c.ReadMessage()
	return b, err
}

func (w *wsStream) write(b []byte) error {
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsStream) close() error {
	return w.c.Close()
}

// PongClient is a player connection to a pong server.
type PongClient struct {
	// Slot is the slot the server assigned during the handshake.
	Slot int

	log     slog.Logger
	enc     ponggame.Encoding
	s       stream
	writeMu sync.Mutex

	// GameCh receives every snapshot in order. It is closed when Run
	// returns.
	GameCh chan ponggame.Snapshot
}

// Dial connects to the server and waits for the slot handshake. It blocks
// while the server is busy with another match.
func Dial(ctx context.Context, cfg *PongClientCfg) (*PongClient, error) {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	wsURL, err := cfg.wsURL()
	if err != nil {
		return nil, err
	}

	pc := &PongClient{
		log:    log,
		enc:    ponggame.EncodingJSON,
		GameCh: make(chan ponggame.Snapshot, 64),
	}
	if wsURL != "" {
		d := websocket.Dialer{HandshakeTimeout: timeout}
		c, _, err := d.DialContext(ctx, wsURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
		}
		pc.s = &wsStream{c: c}
		pc.enc = cfg.Encoding
	} else {
		d := net.Dialer{Timeout: timeout}
		c, err := d.DialContext(ctx, "tcp", cfg.ServerAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", cfg.ServerAddr, err)
		}
		pc.s = &tcpStream{c: c, r: bufio.NewReader(c)}
	}

	// The handshake only arrives once a match seats us, so the read is
	// bound to ctx rather than a deadline.
	type result struct {
		slot int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		line, err := pc.s.readMessage()
		if err != nil {
			done <- result{err: fmt.Errorf("failed to read handshake: %w", err)}
			return
		}
		slot, err := ponggame.ParseHandshake(line)
		done <- result{slot: slot, err: err}
	}()

	select {
	case <-ctx.Done():
		pc.s.close()
		<-done
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			pc.s.close()
			return nil, res.err
		}
		pc.Slot = res.slot
	}
	log.Infof("Seated in slot %d", pc.Slot)
	return pc, nil
}

// Run reads snapshots into GameCh until the server closes the connection,
// a read fails or ctx is done. A clean close by the server returns nil.
func (pc *PongClient) Run(ctx context.Context) error {
	defer close(pc.GameCh)

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			pc.s.close()
		case <-stop:
		}
		return nil
	})
	g.Go(func() error {
		defer close(stop)
		for {
			b, err := pc.s.readMessage()
			if err != nil {
				if isClosed(err) || gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			snap, err := ponggame.DecodeSnapshot(b, pc.enc)
			if err != nil {
				pc.log.Warnf("Skipping message: %v", err)
				continue
			}
			select {
			case pc.GameCh <- snap:
			case <-gctx.Done():
				return nil
			}
		}
	})
	return g.Wait()
}

// SendInput sends one paddle command.
func (pc *PongClient) SendInput(in ponggame.Input) error {
	if in != ponggame.InputUp && in != ponggame.InputDown {
		return fmt.Errorf("invalid input %q", in)
	}
	pc.writeMu.Lock()
	defer pc.writeMu.Unlock()
	// Tokens are newline separated so back to back sends never merge.
	if err := pc.s.write([]byte(string(in) + "\n")); err != nil {
		return fmt.Errorf("failed to send input: %w", err)
	}
	return nil
}

// Close drops the connection. The server treats it as a forfeit while the
// match is running.
func (pc *PongClient) Close() error {
	return pc.s.close()
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
