package export

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Event is one Server-Sent Event.
type Event struct {
	Name string
	Data string
}

// Hub fans events out to connected SSE clients. Slow clients lose their
// oldest queued events rather than stall the broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients: make(map[chan Event]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop disconnects every client.
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		close(ch)
	}
	h.clients = make(map[chan Event]struct{})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every client that has room for it.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Full: drop the oldest so the newest event always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

// SSEHandler returns the handler for the event stream endpoint.
func (h *Hub) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}
		if h.ctx.Err() != nil {
			http.Error(w, "preview stopped", http.StatusServiceUnavailable)
			return
		}

		clientCh := make(chan Event, 4)
		h.mu.Lock()
		h.clients[clientCh] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, clientCh)
			h.mu.Unlock()
		}()

		fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-h.ctx.Done():
				return
			case ev, ok := <-clientCh:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
				flusher.Flush()
			}
		}
	}
}

// previewScript refreshes the frame on every "frame" event, reloads the
// page on "reload", and forwards pointer input to the server.
const previewScript = `<script>
(function() {
  var img = document.getElementById('graph');
  var seq = 0;
  var reconnectDelay = 1000;
  var maxReconnectDelay = 30000;

  function coords(ev) {
    var r = img.getBoundingClientRect();
    return {
      x: (ev.clientX - r.left) * img.naturalWidth / r.width,
      y: (ev.clientY - r.top) * img.naturalHeight / r.height
    };
  }

  // Pointer input goes over a WebSocket; POSTs are the fallback.
  var ws = null;
  function openPointer() {
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    ws = new WebSocket(proto + location.host + '/__preview__/pointer');
    ws.onmessage = function(m) {
      var reply = JSON.parse(m.data);
      img.style.cursor = reply.hovered ? 'pointer' : 'default';
    };
    ws.onclose = function() { ws = null; setTimeout(openPointer, reconnectDelay); };
  }
  function send(type, ev) {
    var c = ev ? coords(ev) : {x: 0, y: 0};
    if (ws && ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify({type: type, x: c.x, y: c.y}));
      return;
    }
    var path = {move: '/hover', click: '/click', leave: '/leave'}[type];
    var q = ev ? '?x=' + c.x.toFixed(1) + '&y=' + c.y.toFixed(1) : '';
    fetch(path + q, {method: 'POST'});
  }
  var lastMove = 0;
  img.addEventListener('mousemove', function(ev) {
    var t = Date.now();
    if (t - lastMove < 30) return;
    lastMove = t;
    send('move', ev);
  });
  img.addEventListener('mouseleave', function() { send('leave'); });
  img.addEventListener('click', function(ev) { send('click', ev); });
  openPointer();

  function connect() {
    var es = new EventSource('/__preview__/events');
    es.addEventListener('connected', function() { reconnectDelay = 1000; });
    es.addEventListener('frame', function() {
      if (!img.complete) return;
      img.src = '/frame.svg?seq=' + (seq++);
    });
    es.addEventListener('reload', function() { location.reload(); });
    es.onerror = function() {
      es.close();
      setTimeout(connect, reconnectDelay);
      reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
    };
  }
  connect();
})();
</script>`
