package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lordikys4/ping-pong/ponggame"
)

// wsReadLimit bounds one client frame. Payloads above MaxInputSize are
// truncated, larger frames close the connection.
const wsReadLimit = 4096

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers from any origin may play.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn carries the protocol over WebSocket: one input token per client
// message, one snapshot per server message. Msgpack snapshots travel as
// binary frames.
type wsConn struct {
	c            *websocket.Conn
	enc          ponggame.Encoding
	writeTimeout time.Duration
	closeOnce    sync.Once
}

func (w *wsConn) ReadInput() ([]byte, error) {
	_, b, err := w.c.ReadMessage()
	if err != nil {
		return nil, err
	}
	if len(b) > ponggame.MaxInputSize {
		b = b[:ponggame.MaxInputSize]
	}
	return b, nil
}

func (w *wsConn) Send(b []byte) error {
	if w.writeTimeout > 0 {
		if err := w.c.SetWriteDeadline(time.Now().Add(w.writeTimeout)); err != nil {
			return err
		}
	}
	msgType := websocket.TextMessage
	if w.enc == ponggame.EncodingMsgpack {
		msgType = websocket.BinaryMessage
	}
	return w.c.WriteMessage(msgType, b)
}

// Close sends a close frame on a best effort basis and drops the
// connection.
func (w *wsConn) Close() error {
	var err error
	w.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match over")
		_ = w.c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = w.c.Close()
	})
	return err
}

func (w *wsConn) Encoding() ponggame.Encoding {
	return w.enc
}

func (w *wsConn) RemoteAddr() string {
	return w.c.RemoteAddr().String()
}

// handleWS upgrades the request and queues the connection for a slot. The
// encoding query parameter selects json (default) or msgpack snapshots.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	enc, err := ponggame.ParseEncoding(r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.connLog.Debugf("WebSocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	c.SetReadLimit(wsReadLimit)
	s.connLog.Debugf("WebSocket connection from %s (%s)", c.RemoteAddr(), enc)
	s.enqueue(&wsConn{c: c, enc: enc, writeTimeout: s.cfg.WriteTimeout})
}
