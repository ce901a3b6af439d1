// Package server exposes a breakpoint database read-only over websockets so
// the schism web UI can page through breakpoint records.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"schism/internal/config"
	"schism/internal/db"
	"schism/internal/logger"
	"schism/internal/protocol"
)

const Version = "0.2.0"

const shutdownTimeout = 5 * time.Second

type Server struct {
	cfg      config.ServeConfig
	db       *sql.DB
	log      *logger.Logger
	upgrader websocket.Upgrader

	// sessions counts hijacked websocket connections, which
	// http.Server.Shutdown does not wait for.
	sessions sync.WaitGroup
}

func New(cfg config.ServeConfig, sqlDB *sql.DB, log *logger.Logger) *Server {
	return &Server{
		cfg: cfg,
		db:  sqlDB,
		log: log,
		upgrader: websocket.Upgrader{
			// The web UI is served from a file or another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts the listener down
// and waits for open sessions to notice.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		s.log.Infof("listening on %s", s.log.Accent(ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	s.sessions.Wait()
	return err
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.Token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.cfg.Token
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	s.log.Infof("session %s opened from %s", sessionID, r.RemoteAddr)
	if err := s.session(r.Context(), conn, sessionID); err != nil && !isClosed(err) {
		s.log.Warnf("session %s ended: %v", sessionID, err)
		return
	}
	s.log.Infof("session %s closed", sessionID)
}

type readResult struct {
	data []byte
	err  error
}

func (s *Server) session(ctx context.Context, conn *websocket.Conn, sessionID string) error {
	hello := protocol.Envelope{Type: protocol.TypeHello, SessionID: sessionID, Version: Version}
	if err := s.write(conn, sessionID, hello); err != nil {
		return err
	}

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	conn.SetReadDeadline(time.Now().Add(s.cfg.PingInterval * 2))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PingInterval * 2))
	})

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	readCh := make(chan readResult, 1)
	go readLoop(readCtx, conn, readCh)

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return nil
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(3*time.Second)); err != nil {
				return err
			}
		case msg := <-readCh:
			if msg.err != nil {
				return msg.err
			}
			s.log.TrafficRx(sessionID, msg.data)
			resp, ok := s.handleMessage(ctx, msg.data)
			if !ok {
				continue
			}
			if err := s.write(conn, sessionID, resp); err != nil {
				return err
			}
		}
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, out chan<- readResult) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case out <- readResult{data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) write(conn *websocket.Conn, label string, env protocol.Envelope) error {
	s.log.TrafficTx(label, env)
	return conn.WriteJSON(env)
}

// handleMessage answers one request. Envelopes without a method are ignored
// and yield ok == false.
func (s *Server) handleMessage(ctx context.Context, data []byte) (protocol.Envelope, bool) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return protocol.Envelope{
			Type:  protocol.TypeResponse,
			Error: &protocol.Error{Code: protocol.CodeBadParams, Message: err.Error()},
		}, true
	}
	if env.Method == "" {
		return protocol.Envelope{}, false
	}

	resp := protocol.Envelope{Type: protocol.TypeResponse, ID: env.ID}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	switch env.Method {
	case protocol.MethodPing:
		resp.Result = map[string]any{"pong": true, "version": Version}
	case protocol.MethodCount:
		count, err := db.CountBreakpoints(ctx, s.db)
		if err != nil {
			resp.Error = dbError(err)
			break
		}
		resp.Result = map[string]any{"count": count}
	case protocol.MethodColumns:
		cols, err := db.Columns(ctx, s.db, db.BreakpointTable)
		if err != nil {
			resp.Error = dbError(err)
			break
		}
		resp.Result = map[string]any{"columns": cols}
	case protocol.MethodSelect:
		var params protocol.SelectParams
		if len(env.Params) > 0 {
			if err := json.Unmarshal(env.Params, &params); err != nil {
				resp.Error = &protocol.Error{Code: protocol.CodeBadParams, Message: err.Error()}
				break
			}
		}
		if (params.Limit != nil && *params.Limit < 0) || (params.Offset != nil && *params.Offset < 0) {
			resp.Error = &protocol.Error{Code: protocol.CodeBadParams, Message: "limit and offset must not be negative"}
			break
		}
		limit := s.cfg.MaxRows
		if params.Limit != nil && *params.Limit < limit {
			limit = *params.Limit
		}

		rs, err := db.SelectBreakpoints(ctx, s.db, db.SelectOptions{
			Columns: params.Columns,
			Limit:   &limit,
			Offset:  params.Offset,
		})
		if err != nil {
			resp.Error = dbError(err)
			break
		}
		resp.Result = map[string]any{"columns": rs.Columns, "rows": rs.Maps()}
	default:
		resp.Error = &protocol.Error{Code: protocol.CodeUnknownMethod, Message: "unsupported method: " + env.Method}
	}

	return resp, true
}

func dbError(err error) *protocol.Error {
	return &protocol.Error{Code: protocol.CodeDBError, Message: err.Error()}
}

func isClosed(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection")
}
