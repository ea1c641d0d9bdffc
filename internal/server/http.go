package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zeusync/entities/internal/core/observability/log"
)

const readHeaderTimeout = 5 * time.Second

// HTTPServer exposes the inspector over HTTP:
//
//	GET /ws       websocket change stream
//	GET /healthz  liveness check
//	GET /metrics  Prometheus metrics, when a handler is given
type HTTPServer struct {
	addr      string
	inspector *Inspector
	metrics   http.Handler
	logger    log.Log

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan error
}

func NewHTTPServer(addr string, inspector *Inspector, metrics http.Handler, logger log.Log) *HTTPServer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &HTTPServer{
		addr:      addr,
		inspector: inspector,
		metrics:   metrics,
		logger:    logger.With(log.String("component", "http")),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", s.inspector)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start listens on the configured address and serves in the background.
func (s *HTTPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Join(ErrListenerFailed, err)
	}
	s.listener = ln
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: readHeaderTimeout}
	s.done = make(chan error, 1)

	go func(srv *http.Server, done chan<- error) {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}(s.server, s.done)

	s.logger.Info("inspector listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, useful when listening on port 0.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down, then closes the inspector's clients.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotRunning
	}

	err := srv.Shutdown(ctx)
	if serr := <-done; serr != nil {
		err = errors.Join(err, serr)
	}
	if cerr := s.inspector.Close(); cerr != nil && !errors.Is(cerr, ErrServerClosed) {
		err = errors.Join(err, cerr)
	}
	s.logger.Info("inspector stopped")
	return err
}
