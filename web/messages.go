package web

import (
	"encoding/json"
	"fmt"

	"cwtrainer/keyer"
)

// ClientMessage is a frame received from the browser.
type ClientMessage struct {
	Type    string  `json:"type"`
	Paddle  string  `json:"paddle,omitempty"`
	Pressed bool    `json:"pressed,omitempty"`
	WPM     int     `json:"wpm,omitempty"`
	Mode    string  `json:"mode,omitempty"`
	Hz      int     `json:"hz,omitempty"`
	DitMs   float64 `json:"dit_ms,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Count   int     `json:"count,omitempty"`
}

// ServerMessage is a frame sent to the browser. The browser implements the
// sounder: it synthesizes audio from tone frames.
type ServerMessage struct {
	Type  string  `json:"type"`
	On    bool    `json:"on,omitempty"`
	Text  string  `json:"text,omitempty"`
	WPM   float64 `json:"wpm,omitempty"`
	Hz    int     `json:"hz,omitempty"`
	Error string  `json:"error,omitempty"`
}

// Client message types.
const (
	MsgKey       = "key"    // paddle/straight transition
	MsgWPM       = "wpm"    // change sending speed
	MsgMode      = "mode"   // change keying algorithm
	MsgTone      = "tone"   // change sidetone frequency
	MsgDitMs     = "dit_ms" // external decoder calibration
	MsgDrill     = "drill"  // start drill playback
	MsgStopDrill = "stop_drill"
	MsgReset     = "reset" // reset decoder calibration
)

// Server message types. MsgTone and MsgEstimate are shared: the server
// sends tone on/off, and a client "estimate" frame requests the current
// decoder speed.
const (
	MsgToken     = "token"      // decoded character, space, or sentinel
	MsgWordBreak = "word_break" // end-of-word notification
	MsgEstimate  = "estimate"   // live decoder wpm estimate
	MsgDrillText = "drill_text" // generated drill content, sent after playback starts
	MsgError     = "error"
)

func decodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("bad frame: %w", err)
	}
	if msg.Type == "" {
		return msg, fmt.Errorf("frame missing type")
	}
	return msg, nil
}

func parsePaddle(s string) (keyer.Paddle, error) {
	switch s {
	case "dit":
		return keyer.PaddleDit, nil
	case "dah":
		return keyer.PaddleDah, nil
	case "straight":
		return keyer.PaddleStraight, nil
	default:
		return 0, fmt.Errorf("unknown paddle %q", s)
	}
}
