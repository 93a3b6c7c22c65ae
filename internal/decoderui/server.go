// Package decoderui serves the RailCom decoder page and its JSON API.
package decoderui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/railscope/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Server is the decoder page server.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	limiter *ipLimiter
	router  *mux.Router
}

// NewServer wires the routes for cfg.
func NewServer(cfg config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger.Named("decoderui"),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newIPLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handlePage).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/decode", s.handleDecode).Methods(http.MethodPost)
	api.HandleFunc("/encode", s.handleEncode).Methods(http.MethodPost)

	r.Use(s.accessLogMiddleware, compressionMiddleware)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("Request served.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("client", clientIP(r)),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// Listen opens the configured address. Use port 0 for an ephemeral port.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return ln, nil
}

// URL is the page address for a listener opened by Listen.
func URL(ln net.Listener) string {
	return "http://" + ln.Addr().String() + "/"
}

// Serve handles requests on ln until ctx is canceled, then shuts down
// gracefully. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
		ErrorLog:     zap.NewStdLog(s.logger.Named("http_server")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Decoder page server listening.", zap.String("url", URL(ln)))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("decoder page server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("decoder page server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		s.logger.Error("Decoder page server stopped with an error.", zap.Error(err))
		return err
	}
	s.logger.Info("Decoder page server stopped.")
	return nil
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
