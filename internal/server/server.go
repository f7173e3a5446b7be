package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/pinger/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second

	taskPrefix = "/task/"
)

// envelope is the body shape of every query response.
type envelope struct {
	Data any `json:"data"`
}

// Server handles HTTP requests for the query API.
type Server struct {
	reader   store.Reader
	port     int
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	handler  http.Handler
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - reader: state table to serve
//   - port: TCP port to listen on (0 picks a free port)
//   - gatherer: metrics source for /metrics (may be nil to disable the route)
//   - logger: logger for server events
//
// The server is not started until [Server.Serve] or [Server.Run] is called.
func NewServer(reader store.Reader, port int, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		reader:   reader,
		port:     port,
		gatherer: gatherer,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the server's request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleList)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// /task/ is dispatched before the mux: monitored URLs contain "//",
	// which the mux would clean and redirect.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, taskPrefix) {
			s.handleTask(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// Listen binds the configured port. Binding separately from [Server.Serve]
// lets callers surface port errors synchronously.
func (s *Server) Listen() (net.Listener, error) {
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}
	return ln, nil
}

// Serve serves requests on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown and the serve error
// otherwise. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	s.logger.Info("query server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
	}
	return nil
}

// Run binds and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// handleList returns every endpoint state.
func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, envelope{Data: s.reader.All()})
}

// handleTask returns one endpoint state. The HTTP status mirrors the
// endpoint's health so simple probes can alert on it.
func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	url := strings.TrimPrefix(r.URL.Path, taskPrefix)
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	state, ok := s.reader.Get(url)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, envelope{Data: struct{}{}})
		return
	}

	code := http.StatusOK
	if state.Status == store.StatusError {
		code = http.StatusInternalServerError
	}
	s.writeJSON(w, code, envelope{Data: state})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"endpoints": len(s.reader.All()),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams state changes via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// write deadlines may not be supported by some ResponseWriter impls
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ch := s.reader.Subscribe()
	defer s.reader.Unsubscribe(ch)

	// current snapshot first
	for _, state := range s.reader.All() {
		data, err := json.Marshal(state)
		if err != nil {
			continue
		}
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	for {
		select {
		case state, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(state)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
