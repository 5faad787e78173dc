package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/lordikys4/ping-pong/ponggame"
)

type PongBotConfig struct {
	DataDir    string
	ServerAddr string
	Encoding   ponggame.Encoding
	DebugLevel string
	// Matches is the number of matches to play, 0 for no limit.
	Matches int
	LogFile string
}

// LoadPongBotConfig parses the command line.
func LoadPongBotConfig(args []string) (*PongBotConfig, error) {
	cfg := &PongBotConfig{
		DataDir:    dcrutil.AppDataDir("pongbot", false),
		ServerAddr: "127.0.0.1:4000",
		DebugLevel: "info",
	}
	var enc string
	flags := flag.NewFlagSet("pongbot", flag.ContinueOnError)
	flags.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "Directory for logs")
	flags.StringVar(&cfg.ServerAddr, "server", cfg.ServerAddr, "host:port of the TCP server or a ws:// URL")
	flags.StringVar(&enc, "encoding", "json", "Snapshot encoding over WebSocket (json or msgpack)")
	flags.StringVar(&cfg.DebugLevel, "debuglevel", cfg.DebugLevel, "Logging level")
	flags.IntVar(&cfg.Matches, "matches", 0, "Matches to play before exiting, 0 for no limit")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.Encoding, err = ponggame.ParseEncoding(enc); err != nil {
		return nil, err
	}
	if cfg.Matches < 0 {
		return nil, fmt.Errorf("matches must not be negative")
	}
	cfg.LogFile = filepath.Join(cfg.DataDir, "logs", "pongbot.log")
	return cfg, nil
}
