package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"cardczar/internal/config"
	"cardczar/internal/protocol/clientbound"
)

// Server terminates websocket connections and serves the static web
// client from one port.
type Server struct {
	cfg      config.Server
	router   *Router
	clients  *ClientManager
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Server, router *Router, clients *ClientManager) *Server {
	return &Server{
		cfg:     cfg,
		router:  router,
		clients: clients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game is join-by-id with no credentials; any origin
			// may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Run listens on the configured address and serves until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the HTTP server on an existing listener. Used by tests
// that need an ephemeral port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
	}()

	slog.Info("http server started", "address", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := httprouter.New()
	mux.GET("/ws", s.handleWS)
	mux.GET("/healthz", s.handleHealthz)

	if s.cfg.PublicDir != "" {
		if _, err := os.Stat(s.cfg.PublicDir); err == nil {
			mux.NotFound = http.FileServer(http.Dir(s.cfg.PublicDir))
		} else {
			slog.Warn("public dir not found, serving websocket only", "dir", s.cfg.PublicDir)
		}
	}
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// handleWS upgrades the connection, announces the session id and runs
// the read loop until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	client := NewClient(uuid.New(), conn,
		s.cfg.SendQueueSize, s.cfg.WriteTimeout, s.cfg.ReadTimeout, s.cfg.PingInterval)

	frame, err := clientbound.EncodeFrame(clientbound.SetID(client.ID()))
	if err != nil {
		slog.Error("encoding session id", "error", err)
		_ = conn.Close()
		return
	}

	s.clients.Register(client)

	// The id announcement must be the first frame on the wire, ahead of
	// anything the lobby sends from the connect event.
	client.enqueue(outFrame{data: frame})
	go client.writePump()

	if !s.router.Accept(client) {
		s.clients.Unregister(client.ID())
		client.Close()
		return
	}

	client.readPump(s.router)
}
