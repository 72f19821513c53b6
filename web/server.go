// Package web serves practice sessions to browser clients over WebSocket.
// Each connection owns one session: paddle transitions flow in, tone on/off
// commands and decoded tokens flow back. Sidetone synthesis happens in the
// browser; this side only says when the tone is on.
package web

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"cwtrainer/config"
	"cwtrainer/decoder"
	"cwtrainer/drill"
	"cwtrainer/keyer"
	"cwtrainer/session"
	"cwtrainer/stats"
)

// sendQueueDepth bounds the per-client outbound queue. Tone frames are
// dropped rather than allowed to block the keyer tick when a client stalls.
const sendQueueDepth = 256

// Server accepts WebSocket clients and binds each to a session.
type Server struct {
	cfg     config.Config
	manager *session.Manager
	tracker *stats.Tracker
	drills  *drill.Generator
	logf    func(string, ...any)

	upgrader websocket.Upgrader
	conns    atomic.Int64
}

// NewServer wires the session manager and drill generator into an HTTP
// handler. logf may be nil.
func NewServer(cfg config.Config, manager *session.Manager, tracker *stats.Tracker, drills *drill.Generator, logf func(string, ...any)) *Server {
	if logf == nil {
		logf = log.Printf
	}
	return &Server{
		cfg:     cfg,
		manager: manager,
		tracker: tracker,
		drills:  drills,
		logf:    logf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The trainer serves localhost and trusted fronts only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the mux for the daemon's HTTP listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if max := int64(s.cfg.Server.MaxConnections); max > 0 && s.conns.Load() >= max {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("Web: upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Add(-1)
	s.serve(conn, r.RemoteAddr)
}

// client bridges one connection to its session. Outbound frames go through
// a buffered queue emptied by a single writer goroutine so only one
// goroutine ever writes to the conn.
type client struct {
	conn    *websocket.Conn
	out     chan ServerMessage
	closeWr sync.Once
	dropped atomic.Uint64
}

func (c *client) send(msg ServerMessage) {
	select {
	case c.out <- msg:
	default:
		c.dropped.Add(1)
	}
}

func (c *client) closeOut() {
	c.closeWr.Do(func() { close(c.out) })
}

// On, Off, SetTone implement keyer.Sounder over the wire.
func (c *client) On()  { c.send(ServerMessage{Type: MsgTone, On: true}) }
func (c *client) Off() { c.send(ServerMessage{Type: MsgTone, On: false}) }

func (c *client) SetTone(hz int) { c.send(ServerMessage{Type: MsgTone, Hz: hz}) }

// OnToken, OnWordBreak implement decoder.Sink over the wire.
func (c *client) OnToken(tok string) { c.send(ServerMessage{Type: MsgToken, Text: tok}) }
func (c *client) OnWordBreak()       { c.send(ServerMessage{Type: MsgWordBreak}) }

func (s *Server) serve(conn *websocket.Conn, remote string) {
	c := &client{conn: conn, out: make(chan ServerMessage, sendQueueDepth)}

	mode, err := keyer.ParseMode(s.cfg.Keyer.Mode)
	if err != nil {
		s.logf("Web: %v, using straight", err)
	}
	sess := session.New(session.Config{
		Mode:         mode,
		WPM:          s.cfg.Keyer.WPM,
		ToneHz:       s.cfg.Keyer.ToneHz,
		TickInterval: time.Duration(s.cfg.Keyer.TickIntervalUs) * time.Microsecond,
		Decoder:      decoderConfig(s.cfg, s.logf),
		Logf:         s.logf,
	}, c, c, s.tracker)
	s.manager.Add(sess)
	s.logf("Web: client %s connected, session %s", remote, sess.ID())

	done := make(chan struct{})
	go s.writeLoop(c, done)

	s.readLoop(c, sess)

	s.manager.Remove(sess.ID())
	c.closeOut()
	<-done
	conn.Close()
	if n := c.dropped.Load(); n > 0 {
		s.logf("Web: client %s dropped %d frames", remote, n)
	}
	s.logf("Web: client %s disconnected", remote)
}

func (s *Server) writeLoop(c *client, done chan struct{}) {
	defer close(done)
	for msg := range c.out {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(msg); err != nil {
			// Reader teardown closes the conn; just drain.
			for range c.out {
			}
			return
		}
	}
}

func (s *Server) readLoop(c *client, sess *session.Session) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := decodeClientMessage(data)
		if err != nil {
			c.send(ServerMessage{Type: MsgError, Error: err.Error()})
			continue
		}
		s.dispatch(c, sess, msg)
	}
}

func (s *Server) dispatch(c *client, sess *session.Session, msg ClientMessage) {
	switch msg.Type {
	case MsgKey:
		p, err := parsePaddle(msg.Paddle)
		if err != nil {
			c.send(ServerMessage{Type: MsgError, Error: err.Error()})
			return
		}
		// Timestamped on arrival; keying decisions happen at tick time.
		sess.Press(p, msg.Pressed, time.Now())
	case MsgWPM:
		sess.SetWPM(msg.WPM)
	case MsgMode:
		mode, err := keyer.ParseMode(msg.Mode)
		if err != nil {
			c.send(ServerMessage{Type: MsgError, Error: err.Error()})
			return
		}
		sess.SetMode(mode)
	case MsgTone:
		sess.SetTone(msg.Hz)
	case MsgDitMs:
		sess.SetDitDuration(msg.DitMs)
	case MsgDrill:
		text := s.drillText(msg)
		sess.PlayDrill(text, s.cfg.Drill.SpacingWPM)
		c.send(ServerMessage{Type: MsgDrillText, Text: text})
	case MsgStopDrill:
		sess.StopDrill()
	case MsgReset:
		sess.ResetDecoder()
	case MsgEstimate:
		c.send(ServerMessage{Type: MsgEstimate, WPM: sess.DecoderWPM()})
	default:
		c.send(ServerMessage{Type: MsgError, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func (s *Server) drillText(msg ClientMessage) string {
	count := msg.Count
	if count <= 0 {
		count = s.cfg.Drill.GroupCount
	}
	if msg.Kind == "callsigns" {
		return s.drills.Callsigns(count)
	}
	return s.drills.Groups(s.cfg.Drill.CharacterSet, s.cfg.Drill.GroupSize, count)
}

func decoderConfig(cfg config.Config, logf func(string, ...any)) decoder.Config {
	return decoder.Config{
		NoiseThresholdMs: cfg.Decoder.NoiseThresholdMs,
		InitialWPM:       cfg.Decoder.InitialWPM,
		HistorySize:      cfg.Decoder.HistorySize,
		Logf:             logf,
	}
}
