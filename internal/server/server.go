package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/STTM-NSU/portfolio-dashboard/internal/logger"
)

type HTTPServer struct {
	s               *http.Server
	shutdownTimeout time.Duration
	logger          logger.Logger
}

func NewHTTPServer(ctx context.Context, port string, handler http.Handler, shutdownTimeout time.Duration, logger logger.Logger) *HTTPServer {
	return &HTTPServer{
		s: &http.Server{
			Handler:           handler,
			Addr:              ":" + port,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext: func(listener net.Listener) context.Context {
				return ctx
			},
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Infof("listening on %s", s.s.Addr)
	if err := s.s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%w: can't serve http", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.s.Shutdown(ctx)
}

// Run serves until ctx is done, then drains in-flight requests within the shutdown timeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		s.logger.Infoln("shutting down http server")
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
