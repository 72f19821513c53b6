package web

import (
	"testing"

	"cwtrainer/config"
	"cwtrainer/decoder"
	"cwtrainer/drill"
	"cwtrainer/keyer"
	"cwtrainer/session"
)

func dispatchFixture(t *testing.T) (*Server, *client, *session.Session) {
	t.Helper()
	quiet := func(string, ...any) {}
	srv := NewServer(*config.Default(), session.NewManager(), nil, drill.New(1), quiet)
	c := &client{out: make(chan ServerMessage, 8)}
	sess := session.New(session.Config{
		Mode:    keyer.ModeIambicB,
		WPM:     20,
		Decoder: decoder.Config{InitialWPM: 20, Logf: quiet},
		Logf:    quiet,
	}, nil, nil, nil)
	return srv, c, sess
}

func drainFrames(c *client) []ServerMessage {
	var out []ServerMessage
	for {
		select {
		case msg := <-c.out:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestDispatchModeChange(t *testing.T) {
	srv, c, sess := dispatchFixture(t)
	srv.dispatch(c, sess, ClientMessage{Type: MsgMode, Mode: "ultimatic"})
	if frames := drainFrames(c); len(frames) != 0 {
		t.Fatalf("unexpected frames %+v", frames)
	}
	if sum := sess.Close(); sum.Mode != keyer.ModeUltimatic.String() {
		t.Fatalf("mode = %q, want ultimatic", sum.Mode)
	}
}

func TestDispatchBadModeLeavesSessionUnchanged(t *testing.T) {
	srv, c, sess := dispatchFixture(t)
	srv.dispatch(c, sess, ClientMessage{Type: MsgMode, Mode: "bug-key"})
	frames := drainFrames(c)
	if len(frames) != 1 || frames[0].Type != MsgError {
		t.Fatalf("frames = %+v, want one error", frames)
	}
	// The rejected request must not fall back to another mode.
	if sum := sess.Close(); sum.Mode != keyer.ModeIambicB.String() {
		t.Fatalf("mode = %q after rejected change, want iambic-b", sum.Mode)
	}
}

func TestDispatchUnknownTypeReportsError(t *testing.T) {
	srv, c, sess := dispatchFixture(t)
	defer sess.Close()
	srv.dispatch(c, sess, ClientMessage{Type: "teleport"})
	frames := drainFrames(c)
	if len(frames) != 1 || frames[0].Type != MsgError {
		t.Fatalf("frames = %+v, want one error", frames)
	}
}
