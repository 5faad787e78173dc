package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/lordikys4/ping-pong/client"
	"github.com/lordikys4/ping-pong/logging"
	"github.com/lordikys4/ping-pong/ponggame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig() ServerConfig {
	game := ponggame.DefaultConfig()
	game.CountdownInterval = 5 * time.Millisecond
	game.TickInterval = 2 * time.Millisecond
	game.BotWaitInterval = time.Millisecond
	game.BotInterval = time.Millisecond
	game.PollInterval = 2 * time.Millisecond
	game.AcceptTimeout = 30 * time.Millisecond
	game.EndDelay = 0
	return ServerConfig{
		ListenAddr:   "127.0.0.1:0",
		Game:         game,
		WriteTimeout: time.Second,
		Rand:         rand.New(rand.NewSource(7)),
	}
}

// startServer runs a server until the test ends.
func startServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errc:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return srv
}

func dial(t *testing.T, addr string, enc ponggame.Encoding) *client.PongClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pc, err := client.Dial(ctx, &client.PongClientCfg{ServerAddr: addr, Encoding: enc})
	require.NoError(t, err)
	t.Cleanup(func() { pc.Close() })
	return pc
}

func runClient(t *testing.T, pc *client.PongClient) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- pc.Run(context.Background()) }()
	return errc
}

// waitFor reads snapshots until pred holds.
func waitFor(t *testing.T, ch <-chan ponggame.Snapshot, pred func(ponggame.Snapshot) bool) ponggame.Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			require.True(t, ok, "connection closed before the expected snapshot")
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

// drain reads until the server closes the connection.
func drain(t *testing.T, ch <-chan ponggame.Snapshot) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("connection was not closed")
		}
	}
}

func TestServer_TwoPlayersForfeit(t *testing.T) {
	cfg := testServerConfig()
	cfg.Game.AcceptTimeout = 5 * time.Second
	srv := startServer(t, cfg)

	p0 := dial(t, srv.Addr().String(), ponggame.EncodingJSON)
	p1 := dial(t, srv.Addr().String(), ponggame.EncodingJSON)
	assert.Equal(t, 0, p0.Slot)
	assert.Equal(t, 1, p1.Slot)

	done0 := runClient(t, p0)
	first := waitFor(t, p0.GameCh, func(ponggame.Snapshot) bool { return true })
	assert.Equal(t, 3, first.Countdown)
	assert.Nil(t, first.Winner)

	require.NoError(t, p1.Close())

	final := waitFor(t, p0.GameCh, func(s ponggame.Snapshot) bool { return s.Over() })
	assert.Equal(t, 0, *final.Winner)

	drain(t, p0.GameCh)
	assert.NoError(t, <-done0)
	require.Eventually(t, func() bool { return srv.MatchesPlayed() == 1 },
		time.Second, time.Millisecond)
}

func TestServer_BotFallbackThenNextMatch(t *testing.T) {
	srv := startServer(t, testServerConfig())

	p0 := dial(t, srv.Addr().String(), ponggame.EncodingJSON)
	assert.Equal(t, 0, p0.Slot)
	runClient(t, p0)

	// The bot holds during the countdown and tracks the ball afterwards.
	waitFor(t, p0.GameCh, func(s ponggame.Snapshot) bool {
		if s.Countdown > 0 {
			require.Equal(t, 250, s.Paddles[1])
		}
		return s.Countdown == 0 && s.Paddles[1] != 250
	})

	require.NoError(t, p0.Close())
	require.Eventually(t, func() bool { return srv.MatchesPlayed() == 1 },
		2*time.Second, time.Millisecond)

	// The server is ready for the next match right away.
	next := dial(t, srv.Addr().String(), ponggame.EncodingJSON)
	assert.Equal(t, 0, next.Slot)
}

func TestServer_RawTCPProtocol(t *testing.T) {
	cfg := testServerConfig()
	cfg.Game.CountdownStart = 0
	cfg.Game.TickInterval = 16 * time.Millisecond
	srv := startServer(t, cfg)

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	c.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(c)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "0\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &msg))
	assert.Equal(t, map[string]any{"0": 250.0, "1": 250.0}, msg["paddles"])
	assert.Equal(t, []any{0.0, 0.0}, msg["scores"])
	assert.Equal(t, 0.0, msg["countdown"])
	assert.Contains(t, msg, "winner")
	assert.Nil(t, msg["winner"])
	assert.Contains(t, msg, "sound_event")
	assert.Nil(t, msg["sound_event"])
	ball := msg["ball"].(map[string]any)
	assert.Equal(t, 400.0, ball["x"])
	assert.Equal(t, 300.0, ball["y"])

	// A bare token with no terminator is enough over TCP.
	_, err = c.Write([]byte("UP"))
	require.NoError(t, err)
	for {
		line, err = r.ReadString('\n')
		require.NoError(t, err)
		var snap ponggame.Snapshot
		require.NoError(t, json.Unmarshal([]byte(line), &snap))
		if snap.Paddles[0] == 240 {
			break
		}
	}
}

func TestServer_WebSocketMsgpack(t *testing.T) {
	cfg := testServerConfig()
	cfg.WSAddr = "127.0.0.1:0"
	cfg.Game.CountdownInterval = 50 * time.Millisecond
	srv := startServer(t, cfg)

	pc := dial(t, "ws://"+srv.WSAddr().String(), ponggame.EncodingMsgpack)
	assert.Equal(t, 0, pc.Slot)
	runClient(t, pc)

	first := waitFor(t, pc.GameCh, func(ponggame.Snapshot) bool { return true })
	assert.Equal(t, 3, first.Countdown)

	require.NoError(t, pc.SendInput(ponggame.InputUp))
	waitFor(t, pc.GameCh, func(s ponggame.Snapshot) bool { return s.Paddles[0] == 240 })
}

func TestServer_Shutdown(t *testing.T) {
	cfg := testServerConfig()
	cfg.Game.AcceptTimeout = time.Hour
	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	c.SetReadDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(c)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "0\n", line)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	// The seated player is disconnected without a result.
	_, err = r.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, srv.MatchesPlayed())
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := testServerConfig()
	cfg.Game.PaddleHeight = 1000
	_, err := NewServer(cfg)
	assert.Error(t, err)

	lb, err := logging.NewLogBackend(logging.LogConfig{Stdout: io.Discard})
	require.NoError(t, err)
	cfg = testServerConfig()
	cfg.LogBackend = lb
	cfg.DebugMatchLevel = "verbose"
	_, err = NewServer(cfg)
	assert.Error(t, err)
}
