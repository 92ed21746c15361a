package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server serves JSON-RPC 2.0 on POST / and the REST routes beside it.
type Server struct {
	handler   *Handler
	addr      string
	authToken string // empty → no auth required
	logger    *logrus.Entry
	srv       *http.Server
	ln        net.Listener
}

// NewServer creates a Server on addr. If authToken is non-empty, every
// JSON-RPC request must carry a matching "Authorization: Bearer <token>"
// header. metrics may be nil.
func NewServer(addr string, handler *Handler, authToken string, metrics http.Handler, logger *logrus.Entry) *Server {
	s := &Server{handler: handler, addr: addr, authToken: authToken, logger: logger}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           withCORS(s.routes(metrics)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(metrics http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Methods(http.MethodPost).Path("/").HandlerFunc(s.serveRPC)
	r.Methods(http.MethodGet).Path("/heads").HandlerFunc(s.getHeads)
	r.Methods(http.MethodGet).Path("/heads/{id}").HandlerFunc(s.getHead)
	r.Methods(http.MethodGet).Path("/global").HandlerFunc(s.getGlobal)
	r.Methods(http.MethodPost).Path("/new_game").HandlerFunc(s.postNewGame)
	r.Methods(http.MethodGet).Path("/players/{pkh}/history").HandlerFunc(s.getPlayerHistory)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("up"))
	})
	if metrics != nil {
		r.Methods(http.MethodGet).Path("/metrics").Handler(metrics)
	}
	return r
}

// Handler returns the full HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start binds the port synchronously (so callers know immediately if binding
// fails) then serves requests in a background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Server stopped")
		}
	}()
	s.logger.WithField("addr", ln.Addr().String()).Info("Serving API")
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the HTTP server, waiting up to 5 seconds for
// in-flight requests to complete.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if s.authToken != "" {
		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			writeJSON(w, errResponse(nil, CodeUnauthorized, "unauthorized"))
			return
		}
	}

	// Limit request body to 1 MB to prevent memory exhaustion.
	r.Body = http.MaxBytesReader(w, r.Body, 1*1024*1024)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, errResponse(nil, CodeParseError, err.Error()))
		return
	}
	if req.JSONRPC != "2.0" {
		writeJSON(w, errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'"))
		return
	}

	resp := s.handler.Dispatch(r.Context(), req)
	if resp.Error != nil {
		s.logger.WithFields(logrus.Fields{"method": req.Method, "code": resp.Error.Code}).Debug(resp.Error.Message)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
