package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"votebot/internal/bootstrap/logging"
	"votebot/internal/errs"
	"votebot/internal/ports"
)

// SnapshotSource supplies the current tallies sent to a viewer on connect.
type SnapshotSource interface {
	Snapshot(ctx context.Context, contestID uint64) (ports.TallySnapshot, error)
}

type Server struct {
	hub      *Hub
	source   SnapshotSource
	upgrader websocket.Upgrader
	srv      *http.Server
	baseCtx  context.Context
}

// NewServer serves GET /ws/contests/{id} and GET /healthz on addr.
// source may be nil, in which case viewers wait for the next published snapshot.
func NewServer(addr string, hub *Hub, source SnapshotSource) *Server {
	s := &Server{
		hub:    hub,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		baseCtx: context.Background(),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/contests/{id}", s.serveContest)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	s.baseCtx = context.WithoutCancel(ctx)
	logCtx := logging.WithComponent(ctx, "livefeed.server")

	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return errs.Wrapf(err, "listen live feed %q", s.srv.Addr)
	}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(logCtx, "live feed server stopped", slog.Any("err", errs.Loggable(err)))
		}
	}()

	logging.Info(logCtx, "live feed listening", slog.String("addr", listener.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return errs.Wrap(err, "shutdown live feed server")
	}
	return nil
}

func (s *Server) serveContest(w http.ResponseWriter, r *http.Request) {
	contestID, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || contestID == 0 {
		http.Error(w, "invalid contest id", http.StatusBadRequest)
		return
	}

	logCtx := logging.WithAttrs(s.baseCtx, slog.String("component", "livefeed.server"), slog.Uint64("contest_id", contestID))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(logCtx, "websocket upgrade failed", slog.Any("err", errs.Loggable(err)))
		return
	}

	c := &client{hub: s.hub, conn: conn, send: make(chan []byte, clientBuffer), contestID: contestID}
	if s.source != nil {
		if snapshot, err := s.source.Snapshot(r.Context(), contestID); err == nil {
			if payload, err := json.Marshal(snapshot); err == nil {
				c.send <- payload
				c.primed = true
			}
		} else {
			logging.Warn(logCtx, "initial snapshot failed", slog.Any("err", errs.Loggable(err)))
		}
	}

	if !s.hub.join(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
