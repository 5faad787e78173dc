package ponggame

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory Conn. Inputs are fed through inputs, sent
// messages are collected in sent, and close simulates the peer going away.
type fakeConn struct {
	inputs    chan []byte
	sent      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	failSend  atomic.Bool
	enc       Encoding
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inputs: make(chan []byte, 16),
		sent:   make(chan []byte, 4096),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadInput() ([]byte, error) {
	select {
	case b := <-f.inputs:
		return b, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeConn) Send(b []byte) error {
	if f.failSend.Load() {
		return errors.New("broken pipe")
	}
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sent <- cp:
	default:
	}
	return nil
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Encoding() Encoding { return f.enc }

func (f *fakeConn) RemoteAddr() string { return "fake" }

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// nextMessage returns the next message sent to f.
func (f *fakeConn) nextMessage(t *testing.T) []byte {
	t.Helper()
	select {
	case b := <-f.sent:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

// nextSnapshot returns the next snapshot sent to f.
func (f *fakeConn) nextSnapshot(t *testing.T) Snapshot {
	t.Helper()
	snap, err := DecodeSnapshot(f.nextMessage(t), f.enc)
	require.NoError(t, err)
	return snap
}

// waitSnapshot skips snapshots until pred holds.
func (f *fakeConn) waitSnapshot(t *testing.T, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case b := <-f.sent:
			snap, err := DecodeSnapshot(b, f.enc)
			require.NoError(t, err)
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return Snapshot{}
		}
	}
}

// testConfig is DefaultConfig with millisecond timings.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CountdownInterval = 5 * time.Millisecond
	cfg.TickInterval = 2 * time.Millisecond
	cfg.BotWaitInterval = time.Millisecond
	cfg.BotInterval = time.Millisecond
	cfg.PollInterval = 2 * time.Millisecond
	cfg.AcceptTimeout = 30 * time.Millisecond
	cfg.EndDelay = 0
	return cfg
}
