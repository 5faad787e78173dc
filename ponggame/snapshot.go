package ponggame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format of snapshots sent to a connection.
type Encoding uint8

const (
	// EncodingJSON is newline terminated JSON, the default.
	EncodingJSON Encoding = iota
	// EncodingMsgpack is one msgpack document per message.
	EncodingMsgpack

	numEncodings
)

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingMsgpack:
		return "msgpack"
	}
	return fmt.Sprintf("encoding(%d)", uint8(e))
}

// ParseEncoding maps a user supplied name to an Encoding. The empty string
// selects JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "json":
		return EncodingJSON, nil
	case "msgpack":
		return EncodingMsgpack, nil
	}
	return 0, fmt.Errorf("unknown encoding %q", s)
}

// BallSnapshot is the wire form of Ball.
type BallSnapshot struct {
	X  int `json:"x" msgpack:"x"`
	Y  int `json:"y" msgpack:"y"`
	VX int `json:"vx" msgpack:"vx"`
	VY int `json:"vy" msgpack:"vy"`
}

// Snapshot is the state broadcast after each countdown step and tick.
type Snapshot struct {
	Paddles    map[int]int   `json:"paddles" msgpack:"paddles"`
	Ball       BallSnapshot  `json:"ball" msgpack:"ball"`
	Scores     [NumSlots]int `json:"scores" msgpack:"scores"`
	Countdown  int           `json:"countdown" msgpack:"countdown"`
	Winner     *int          `json:"winner" msgpack:"winner"`
	SoundEvent *SoundEvent   `json:"sound_event" msgpack:"sound_event"`
}

// Over reports whether the snapshot carries a finished match.
func (s *Snapshot) Over() bool {
	return s.Winner != nil
}

// Encode serializes s. JSON output is terminated by a newline so a stream
// consumer can split on '\n'.
func (s *Snapshot) Encode(enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON:
		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return append(b, '\n'), nil
	case EncodingMsgpack:
		b, err := msgpack.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported encoding %v", enc)
}

// DecodeSnapshot is the inverse of Snapshot.Encode.
func DecodeSnapshot(b []byte, enc Encoding) (Snapshot, error) {
	var s Snapshot
	var err error
	switch enc {
	case EncodingJSON:
		b = bytes.TrimRight(b, "\r\n")
		if len(b) == 0 {
			return s, fmt.Errorf("empty snapshot")
		}
		err = json.Unmarshal(b, &s)
	case EncodingMsgpack:
		err = msgpack.Unmarshal(b, &s)
	default:
		return s, fmt.Errorf("unsupported encoding %v", enc)
	}
	if err != nil {
		return s, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return s, nil
}

// HandshakeMessage is the line that tells a client which slot it plays.
func HandshakeMessage(slot int) []byte {
	return []byte(strconv.Itoa(slot) + "\n")
}

// ParseHandshake is the inverse of HandshakeMessage.
func ParseHandshake(line []byte) (int, error) {
	slot, err := strconv.Atoi(string(bytes.TrimSpace(line)))
	if err != nil {
		return 0, fmt.Errorf("invalid handshake %q: %w", line, err)
	}
	if slot < 0 || slot >= NumSlots {
		return 0, fmt.Errorf("handshake slot %d: %w", slot, ErrBadSlot)
	}
	return slot, nil
}
