package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/san-kum/morphcloud/internal/gesture"
)

const (
	sendBuffer   = 32
	writeTimeout = 2 * time.Second
	readLimit    = 1 << 20
)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAddr sets the listen address.
func WithAddr(addr string) ServerOption {
	return func(s *Server) { s.addr = addr }
}

// WithPath sets the WebSocket endpoint path.
func WithPath(path string) ServerOption {
	return func(s *Server) { s.path = path }
}

// WithOrigins restricts which browser origins may connect. Without it any
// origin is accepted.
func WithOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = true
		}
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithRecorder records every landmark message received.
func WithRecorder(r Recorder) ServerOption {
	return func(s *Server) { s.rec = r }
}

// Server accepts recognizer clients over WebSocket. Each client may send
// landmarks, shape and color messages; every client receives status
// broadcasts.
type Server struct {
	addr    string
	path    string
	origins map[string]bool
	log     *slog.Logger
	rec     Recorder

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		addr:    "127.0.0.1:8787",
		path:    "/ws",
		origins: make(map[string]bool),
		log:     slog.Default(),
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.origins) == 0 {
		return true
	}
	return s.origins[r.Header.Get("Origin")]
}

// Handler returns the HTTP handler serving the endpoint for sink.
func (s *Server) Handler(sink Sink) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, func(w http.ResponseWriter, r *http.Request) {
		s.serveWS(w, r, sink)
	})
	return mux
}

// Run listens until ctx is done, then closes every client.
func (s *Server) Run(ctx context.Context, sink Sink) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("source: listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln, sink)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, sink Sink) error {
	srv := &http.Server{
		Handler:           s.Handler(sink),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info("landmark server listening", "addr", ln.Addr().String(), "path", s.path)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	s.mu.Lock()
	for c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()

	return err
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast queues m for every client. Slow clients drop messages rather
// than block the caller.
func (s *Server) Broadcast(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- m:
		default:
		}
	}
}

// StatusHook adapts Broadcast to gesture.OnStatus.
func (s *Server) StatusHook() func(gesture.Status, int, string) {
	return func(st gesture.Status, hands int, text string) {
		s.Broadcast(Message{Type: TypeStatus, Status: st.String(), Count: hands, Text: text})
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request, sink Sink) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	conn.SetReadLimit(readLimit)

	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Info("client connected", "remote", r.RemoteAddr)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	s.readLoop(c, sink)

	s.mu.Lock()
	delete(s.clients, c)
	close(c.send)
	s.mu.Unlock()

	<-writerDone
	conn.Close()
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

func (c *client) writeLoop() {
	for m := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(m); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (s *Server) readLoop(c *client, sink Sink) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("client read ended", "err", err)
			}
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.reply(Message{Type: TypeError, Error: "invalid json"})
			continue
		}
		if reply, ok := s.handle(m, sink); ok {
			c.reply(reply)
		}
	}
}

func (c *client) reply(m Message) {
	select {
	case c.send <- m:
	default:
	}
}

func (s *Server) handle(m Message, sink Sink) (Message, bool) {
	switch m.Type {
	case TypeLandmarks:
		res := gesture.Result{Hands: m.Hands, At: time.Now()}
		if s.rec != nil {
			if err := s.rec.RecordFrame(res); err != nil {
				s.log.Debug("recording frame failed", "err", err)
			}
		}
		err := sink.HandleLandmarks(res)
		switch {
		case err == nil:
			return Message{}, false
		case errors.Is(err, gesture.ErrMalformed):
			// dropped frames are normal while a hand enters the view
			return Message{}, false
		default:
			return Message{Type: TypeError, Error: err.Error()}, true
		}

	case TypeShape:
		shape, err := sink.SwitchShapeByName(m.Shape)
		if err != nil {
			return Message{Type: TypeError, Error: err.Error()}, true
		}
		return Message{Type: TypeStatus, Shape: shape.String()}, true

	case TypeColor:
		if err := sink.SetColorHex(m.Color); err != nil {
			return Message{Type: TypeError, Error: err.Error()}, true
		}
		return Message{Type: TypeStatus, Color: m.Color}, true

	default:
		return Message{Type: TypeError, Error: fmt.Sprintf("unknown message type %q", m.Type)}, true
	}
}
