package web

import (
	"encoding/json"
	"testing"

	"cwtrainer/keyer"
)

func TestDecodeClientMessage(t *testing.T) {
	msg, err := decodeClientMessage([]byte(`{"type":"key","paddle":"dit","pressed":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MsgKey || msg.Paddle != "dit" || !msg.Pressed {
		t.Fatalf("decoded %+v", msg)
	}

	msg, err = decodeClientMessage([]byte(`{"type":"drill","kind":"callsigns","count":5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != MsgDrill || msg.Kind != "callsigns" || msg.Count != 5 {
		t.Fatalf("decoded %+v", msg)
	}
}

func TestDecodeClientMessageRejections(t *testing.T) {
	if _, err := decodeClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := decodeClientMessage([]byte(`{"paddle":"dit"}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestParsePaddle(t *testing.T) {
	cases := []struct {
		in   string
		want keyer.Paddle
	}{
		{"dit", keyer.PaddleDit},
		{"dah", keyer.PaddleDah},
		{"straight", keyer.PaddleStraight},
	}
	for _, tc := range cases {
		got, err := parsePaddle(tc.in)
		if err != nil {
			t.Fatalf("parsePaddle(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parsePaddle(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := parsePaddle("middle"); err == nil {
		t.Fatalf("expected error for unknown paddle")
	}
}

func TestServerMessageEncoding(t *testing.T) {
	data, err := json.Marshal(ServerMessage{Type: MsgTone, On: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"type":"tone","on":true}` {
		t.Fatalf("tone frame = %s", data)
	}
	data, err = json.Marshal(ServerMessage{Type: MsgTone})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// Tone-off frames rely on omitempty dropping the false field.
	if string(data) != `{"type":"tone"}` {
		t.Fatalf("tone off frame = %s", data)
	}
}
