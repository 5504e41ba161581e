package export

import (
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vanderheijden86/identigraph/pkg/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer
	pongWait = 60 * time.Second

	// Ping period, must be less than pongWait
	pingPeriod = 54 * time.Second

	// Pointer messages are tiny
	maxPointerMessage = 512

	// Moves beyond this rate per connection are dropped. Other pointer
	// events are never dropped.
	pointerMoveRate  = 60
	pointerMoveBurst = 10
)

// PointerMessage is one pointer event from the browser.
type PointerMessage struct {
	Type string  `json:"type"` // "move", "leave", "click" or "dismiss"
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// PointerReply is sent back after every message so the page can show what
// is under the pointer.
type PointerReply struct {
	Hovered string `json:"hovered,omitempty"`
	Phase   string `json:"phase"`
	Dropped bool   `json:"dropped,omitempty"`
	Error   string `json:"error,omitempty"`
}

var pointerUpgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 512,
	CheckOrigin:     sameHostOrigin,
}

// sameHostOrigin accepts requests without an Origin header and pages served
// from this host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return origin == r.Host
}

// handlePointerSocket streams pointer input over one WebSocket instead of a
// POST per mouse move.
func (p *Preview) handlePointerSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := pointerUpgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Debug("pointer upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxPointerMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go p.pingLoop(conn, done)

	moves := rate.NewLimiter(rate.Limit(pointerMoveRate), pointerMoveBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				p.log.Warn("pointer socket closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := p.routePointer(data, moves)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// routePointer applies one message to the current session. Moves that
// exceed the limiter are answered but not applied.
func (p *Preview) routePointer(data []byte, moves *rate.Limiter) PointerReply {
	var msg PointerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PointerReply{Error: "invalid message"}
	}

	sess := p.current()
	pt := model.Point{X: msg.X, Y: msg.Y}
	var reply PointerReply
	switch msg.Type {
	case "move":
		if moves != nil && !moves.Allow() {
			p.metrics.Dropped.Inc()
			st := sess.State()
			return PointerReply{Hovered: st.Hovered, Phase: st.Phase.String(), Dropped: true}
		}
		reply.Hovered = sess.PointerMove(pt)
	case "leave":
		sess.PointerLeave()
	case "click":
		sess.Click(pt)
		reply.Hovered = sess.State().Hovered
	case "dismiss":
		sess.Dismiss()
	default:
		reply.Error = "unknown type " + msg.Type
		reply.Phase = sess.State().Phase.String()
		return reply
	}
	p.metrics.Pointer.WithLabelValues(msg.Type, "ws").Inc()
	reply.Phase = sess.State().Phase.String()
	return reply
}

func (p *Preview) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
