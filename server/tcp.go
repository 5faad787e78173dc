package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/lordikys4/ping-pong/ponggame"
)

// tcpConn carries the line protocol over a raw TCP stream.
type tcpConn struct {
	c            net.Conn
	writeTimeout time.Duration
	buf          [ponggame.MaxInputSize]byte
}

func newTCPConn(c net.Conn, writeTimeout time.Duration) *tcpConn {
	if tc, ok := c.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	return &tcpConn{c: c, writeTimeout: writeTimeout}
}

// ReadInput returns whatever one read produced, at most MaxInputSize bytes.
// The returned slice is only valid until the next call.
func (t *tcpConn) ReadInput() ([]byte, error) {
	n, err := t.c.Read(t.buf[:])
	if n > 0 {
		return t.buf[:n], nil
	}
	return nil, err
}

func (t *tcpConn) Send(b []byte) error {
	if t.writeTimeout > 0 {
		if err := t.c.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := t.c.Write(b)
	return err
}

func (t *tcpConn) Close() error {
	return t.c.Close()
}

func (t *tcpConn) Encoding() ponggame.Encoding {
	return ponggame.EncodingJSON
}

func (t *tcpConn) RemoteAddr() string {
	return t.c.RemoteAddr().String()
}

// acceptTCP accepts players until the listener is closed.
func (s *Server) acceptTCP(ctx context.Context) error {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.connLog.Warnf("Temporary accept error: %v", err)
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		s.connLog.Debugf("TCP connection from %s", c.RemoteAddr())
		if !s.enqueue(newTCPConn(c, s.cfg.WriteTimeout)) {
			return nil
		}
	}
}
