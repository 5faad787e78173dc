package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/joho/godotenv"
	"github.com/lordikys4/ping-pong/ponggame"
)

const envPrefix = "PONG_"

// PongSrvConfig is the server configuration. Each setting comes, in order of
// precedence, from a command line flag, a PONG_* environment variable, a
// PONG_* entry in <datadir>/.env, or its default.
type PongSrvConfig struct {
	DataDir         string
	ListenAddr      string
	WSAddr          string
	DebugLevel      string
	DebugMatchLevel string
	MaxLogFiles     int
	LogFile         string

	Game ponggame.Config
}

func LoadPongSrvConfig(args []string) (*PongSrvConfig, error) {
	cfg := &PongSrvConfig{
		DataDir:     dcrutil.AppDataDir("pongsrv", false),
		ListenAddr:  ":4000",
		DebugLevel:  "info",
		MaxLogFiles: 10,
		Game:        ponggame.DefaultConfig(),
	}
	g := &cfg.Game

	flags := flag.NewFlagSet("pongsrv", flag.ContinueOnError)
	flags.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "Directory for logs and the .env file")
	flags.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP address for players")
	flags.StringVar(&cfg.WSAddr, "wslisten", cfg.WSAddr, "HTTP address for WebSocket players (disabled when empty)")
	flags.StringVar(&cfg.DebugLevel, "debuglevel", cfg.DebugLevel, "Logging level, e.g. info or info,Match=debug")
	flags.StringVar(&cfg.DebugMatchLevel, "matchdebuglevel", cfg.DebugMatchLevel, "Logging level of the Match subsystem")
	flags.IntVar(&cfg.MaxLogFiles, "maxlogfiles", cfg.MaxLogFiles, "Number of rotated log files to keep")
	flags.IntVar(&g.WinScore, "winscore", g.WinScore, "Points needed to win")
	flags.IntVar(&g.CountdownStart, "countdown", g.CountdownStart, "Countdown steps before the ball moves")
	flags.DurationVar(&g.TickInterval, "tick", g.TickInterval, "Simulation tick interval")
	flags.DurationVar(&g.AcceptTimeout, "accepttimeout", g.AcceptTimeout, "How long slot 1 waits before the bot plays")
	flags.DurationVar(&g.EndDelay, "enddelay", g.EndDelay, "How long the final score stays up before disconnecting")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	explicit := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	env, err := readEnv(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	var setErr error
	flags.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] || f.Name == "datadir" || setErr != nil {
			return
		}
		key := envKey(f.Name)
		if v, ok := env[key]; ok {
			if err := f.Value.Set(v); err != nil {
				setErr = fmt.Errorf("invalid %s=%q: %w", key, v, err)
			}
		}
	})
	if setErr != nil {
		return nil, setErr
	}

	// The bot polls at the tick rate.
	if g.BotInterval > g.TickInterval {
		g.BotInterval = g.TickInterval
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	cfg.LogFile = filepath.Join(cfg.DataDir, "logs", "pongsrv.log")
	return cfg, nil
}

// readEnv merges <dataDir>/.env with the process environment, the latter
// winning. A missing .env file is not an error.
func readEnv(dataDir string) (map[string]string, error) {
	env, err := godotenv.Read(filepath.Join(dataDir, ".env"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
		env = make(map[string]string)
	}
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(k, envPrefix) {
			env[k] = v
		}
	}
	return env, nil
}

func envKey(flagName string) string {
	return envPrefix + strings.ToUpper(flagName)
}

func (cfg *PongSrvConfig) String() string {
	return fmt.Sprintf("listen=%s ws=%q winscore=%d tick=%v accepttimeout=%v",
		cfg.ListenAddr, cfg.WSAddr, cfg.Game.WinScore, cfg.Game.TickInterval,
		cfg.Game.AcceptTimeout)
}
