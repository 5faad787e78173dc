package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/decred/slog"
	"github.com/lordikys4/ping-pong/ponggame"
)

const defaultDialTimeout = 10 * time.Second

type PongClientCfg struct {
	// ServerAddr is either host:port for the TCP protocol or a ws:// URL.
	ServerAddr string
	// Encoding selects the snapshot encoding over WebSocket. TCP always
	// uses JSON.
	Encoding ponggame.Encoding

	DialTimeout time.Duration
	Log         slog.Logger // Application's logger
}

// wsURL returns the WebSocket URL to dial, or "" for a TCP address.
func (cfg *PongClientCfg) wsURL() (string, error) {
	u, err := url.Parse(cfg.ServerAddr)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return "", nil
	}
	if u.Path == "" {
		u.Path = "/ws"
	}
	switch cfg.Encoding {
	case ponggame.EncodingJSON:
	case ponggame.EncodingMsgpack:
		q := u.Query()
		q.Set("encoding", cfg.Encoding.String())
		u.RawQuery = q.Encode()
	default:
		return "", fmt.Errorf("unsupported encoding %v", cfg.Encoding)
	}
	return u.String(), nil
}
