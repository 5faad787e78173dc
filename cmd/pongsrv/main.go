package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lordikys4/ping-pong/logging"
	"github.com/lordikys4/ping-pong/server"
)

func realMain() error {
	cfg, err := LoadPongSrvConfig(os.Args[1:])
	if err != nil {
		return err
	}

	lb, err := logging.NewLogBackend(logging.LogConfig{
		LogFile:     cfg.LogFile,
		DebugLevel:  cfg.DebugLevel,
		MaxLogFiles: cfg.MaxLogFiles,
	})
	if err != nil {
		return err
	}
	defer lb.Close()
	log := lb.Logger("PongSrv")
	log.Infof("Config: %s", cfg)

	srv, err := server.NewServer(server.ServerConfig{
		ListenAddr:      cfg.ListenAddr,
		WSAddr:          cfg.WSAddr,
		Game:            cfg.Game,
		LogBackend:      lb,
		DebugMatchLevel: cfg.DebugMatchLevel,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.Run(ctx)
}

func main() {
	err := realMain()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
