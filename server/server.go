package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/lordikys4/ping-pong/logging"
	"github.com/lordikys4/ping-pong/ponggame"
	"golang.org/x/sync/errgroup"
)

const (
	name    = "pongsrv"
	version = "v0.1.0"

	defaultWriteTimeout = 5 * time.Second
)

type ServerConfig struct {
	// ListenAddr is the TCP address players connect to.
	ListenAddr string
	// WSAddr, when set, serves the same game over WebSocket at /ws.
	WSAddr string

	Game         ponggame.Config
	WriteTimeout time.Duration

	// LogBackend provides the subsystem loggers. Logging is disabled when
	// nil.
	LogBackend *logging.LogBackend
	// DebugMatchLevel overrides the level of the Match subsystem.
	DebugMatchLevel string

	// Rand seeds the ball directions. A time based source is used when nil.
	Rand *rand.Rand
}

// Server runs matches one after the other. Connections from every listener
// feed a single queue that the current match's waiting room drains.
type Server struct {
	cfg ServerConfig

	log      slog.Logger
	matchLog slog.Logger
	connLog  slog.Logger

	listener   net.Listener
	wsListener net.Listener
	httpServer *http.Server

	incoming chan ponggame.Conn
	quit     chan struct{}
	played   atomic.Uint64
}

// NewServer validates cfg and binds the listeners, so the addresses are
// known before Run.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.Game.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Server{
		cfg:      cfg,
		log:      slog.Disabled,
		matchLog: slog.Disabled,
		connLog:  slog.Disabled,
		incoming: make(chan ponggame.Conn),
		quit:     make(chan struct{}),
	}
	if cfg.LogBackend != nil {
		if cfg.DebugMatchLevel != "" {
			lvl, err := GetDebugLevel(cfg.DebugMatchLevel)
			if err != nil {
				return nil, err
			}
			cfg.LogBackend.SetLevel("Match", lvl)
		}
		s.log = cfg.LogBackend.Logger("Server")
		s.matchLog = cfg.LogBackend.Logger("Match")
		s.connLog = cfg.LogBackend.Logger("Acceptor")
	}

	l, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}
	s.listener = l

	if cfg.WSAddr != "" {
		wl, err := net.Listen("tcp", cfg.WSAddr)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.WSAddr, err)
		}
		s.wsListener = wl
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWS)
		s.httpServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s, nil
}

// Addr returns the TCP game address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// WSAddr returns the WebSocket listener address, or nil when disabled.
func (s *Server) WSAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// MatchesPlayed returns how many matches ran to completion.
func (s *Server) MatchesPlayed() uint64 {
	return s.played.Load()
}

// Run serves until ctx is cancelled. A running match is torn down without
// a winner being forced.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	s.log.Infof("Starting %s %s, listening on %s", name, version, s.listener.Addr())
	g.Go(func() error {
		return s.acceptTCP(gctx)
	})

	if s.httpServer != nil {
		s.log.Infof("Serving WebSocket clients on ws://%s/ws", s.wsListener.Addr())
		g.Go(func() error {
			err := s.httpServer.Serve(s.wsListener)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		return s.supervise(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutting down...")
		close(s.quit)
		s.listener.Close()
		if s.httpServer != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(sctx); err != nil {
				s.log.Errorf("Error shutting down HTTP server: %v", err)
			}
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.log.Info("Server shut down completed.")
	return nil
}

// supervise plays matches back to back until ctx is done.
func (s *Server) supervise(ctx context.Context) error {
	for {
		if err := s.playMatch(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// playMatch runs one full match: seat both slots, simulate, wait for the
// result, hold so clients see the winner, then close everything.
func (s *Server) playMatch(ctx context.Context) error {
	m := ponggame.NewMatch(ctx, s.cfg.Game, s.matchLog, s.cfg.Rand)
	defer func() {
		if err := m.Close(); err != nil {
			s.log.Errorf("Match %s: close: %v", m.ID, err)
		}
	}()
	s.log.Debugf("Match %s: waiting for players", m.ID)

	wr := ponggame.NewWaitingRoom(s.incoming, s.cfg.Game.AcceptTimeout, s.connLog)
	if err := wr.Fill(ctx, m); err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start match %s: %w", m.ID, err)
	}
	s.log.Infof("Match %s: started (bot: %v)", m.ID, m.HasBot())

	res, err := m.WaitDone(ctx)
	if err != nil {
		return err
	}
	reason := "score"
	if res.Forfeit {
		reason = "forfeit"
	}
	s.log.Infof("Match %s: slot %d wins %d-%d by %s", res.MatchID, res.Winner,
		res.Scores[0], res.Scores[1], reason)
	s.played.Add(1)

	if d := s.cfg.Game.EndDelay; d > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	}
	return nil
}

// enqueue hands conn to the waiting room. It blocks while a match is in
// progress and gives up, closing conn, once the server shuts down.
func (s *Server) enqueue(conn ponggame.Conn) bool {
	select {
	case s.incoming <- conn:
		return true
	case <-s.quit:
		conn.Close()
		return false
	}
}
