package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/lordikys4/ping-pong/client"
	"github.com/lordikys4/ping-pong/logging"
	"github.com/lordikys4/ping-pong/ponggame"
	"golang.org/x/sync/errgroup"
)

// play joins one match and tracks the ball with the same heuristic as the
// server side bot until the server hangs up.
func play(ctx context.Context, cfg *PongBotConfig, log slog.Logger) (*ponggame.Snapshot, error) {
	pc, err := client.Dial(ctx, &client.PongClientCfg{
		ServerAddr: cfg.ServerAddr,
		Encoding:   cfg.Encoding,
		Log:        log,
	})
	if err != nil {
		return nil, err
	}
	defer pc.Close()

	game := ponggame.DefaultConfig()
	var last *ponggame.Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pc.Run(gctx)
	})
	g.Go(func() error {
		for snap := range pc.GameCh {
			snap := snap
			last = &snap
			if snap.Over() || snap.Countdown > 0 {
				continue
			}
			in := ponggame.Decide(game, snap.Ball.Y, snap.Paddles[pc.Slot])
			if in == "" {
				continue
			}
			if err := pc.SendInput(in); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return last, err
	}
	return last, nil
}

func realMain() error {
	cfg, err := LoadPongBotConfig(os.Args[1:])
	if err != nil {
		return err
	}
	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:     cfg.LogFile,
		DebugLevel:  cfg.DebugLevel,
		MaxLogFiles: 3,
	})
	if err != nil {
		return err
	}
	defer lb.Close()
	log := lb.Logger("PongBot")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for played := 0; cfg.Matches == 0 || played < cfg.Matches; played++ {
		log.Infof("Connecting to %s", cfg.ServerAddr)
		last, err := play(ctx, cfg, log)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if last != nil && last.Over() {
			log.Infof("Match over: slot %d won %d-%d", *last.Winner, last.Scores[0], last.Scores[1])
		} else {
			log.Warnf("Disconnected before the match ended")
		}
	}
	return nil
}

func main() {
	err := realMain()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
