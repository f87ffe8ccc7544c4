package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/sightline/internal/adapters/nats"
	"github.com/samirrijal/sightline/internal/core/domain"
	"github.com/samirrijal/sightline/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsMessage is a client control frame, e.g.
// {"action":"subscribe","channel":"results","policy":"radar_mast_decay"}.
type wsMessage struct {
	Action  string `json:"action"`  // subscribe | unsubscribe
	Channel string `json:"channel"` // results (default) | coverage
	Policy  string `json:"policy"`  // results only; empty means every policy
}

// wsReply acknowledges a control frame.
type wsReply struct {
	Status  string `json:"status,omitempty"`
	Subject string `json:"subject,omitempty"`
	Error   string `json:"error,omitempty"`
}

// wsSubject maps a client subscription onto a NATS subject.
func wsSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "results":
		switch m.Policy {
		case "":
			return natsadapter.SubjectResults, true
		case domain.PolicyCurvatureSightline, domain.PolicyRadarMastDecay:
			return natsadapter.SubjectResultPrefix + m.Policy, true
		}
	case "coverage":
		return natsadapter.SubjectCoveragePrefix + ">", true
	}
	return "", false
}

// wsSession is one connected client and its NATS subscriptions.
type wsSession struct {
	conn *websocket.Conn
	nc   *nats.Conn
	log  *slog.Logger

	writeMu sync.Mutex
	subs    map[string]*nats.Subscription
}

func (s *wsSession) write(kind int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(kind, data)
}

func (s *wsSession) reply(r wsReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = s.write(websocket.TextMessage, data)
}

// relay forwards NATS payloads verbatim; they are already JSON.
func (s *wsSession) relay(msg *nats.Msg) {
	if err := s.write(websocket.TextMessage, msg.Data); err != nil {
		s.log.Debug("ws relay failed", "subject", msg.Subject, "error", err)
	}
}

func (s *wsSession) subscribe(subject string) wsReply {
	if _, ok := s.subs[subject]; ok {
		return wsReply{Status: "already subscribed", Subject: subject}
	}
	sub, err := s.nc.Subscribe(subject, s.relay)
	if err != nil {
		return wsReply{Error: "subscribe failed: " + err.Error()}
	}
	s.subs[subject] = sub
	return wsReply{Status: "subscribed", Subject: subject}
}

func (s *wsSession) unsubscribe(subject string) wsReply {
	sub, ok := s.subs[subject]
	if !ok {
		return wsReply{Error: "not subscribed to " + subject}
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	return wsReply{Status: "unsubscribed", Subject: subject}
}

func (s *wsSession) handle(raw []byte) wsReply {
	var m wsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return wsReply{Error: "invalid JSON"}
	}
	subject, ok := wsSubject(m)
	if !ok {
		return wsReply{Error: "unknown channel or policy"}
	}
	switch m.Action {
	case "subscribe":
		return s.subscribe(subject)
	case "unsubscribe":
		return s.unsubscribe(subject)
	default:
		return wsReply{Error: "unknown action: " + m.Action}
	}
}

func (s *wsSession) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *wsSession) close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}

// WebSocketHandler relays visibility results and coverage reports from NATS
// to WebSocket clients. Every client starts subscribed to all results.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		s := &wsSession{
			conn: c,
			nc:   nc,
			log:  slog.With("remote", c.RemoteAddr().String()),
			subs: make(map[string]*nats.Subscription),
		}
		defer s.close()

		if r := s.subscribe(natsadapter.SubjectResults); r.Error != "" {
			s.log.Error("ws default subscribe", "error", r.Error)
			return
		}
		s.log.Info("ws client connected")

		done := make(chan struct{})
		defer close(done)
		go s.keepAlive(done)

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			s.reply(s.handle(raw))
		}
		s.log.Info("ws client disconnected")
	}
}
