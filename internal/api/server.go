// Package api serves the loaded trading calendars over HTTP and gRPC.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"quantcal/internal/calendar"
)

const shutdownTimeout = 10 * time.Second

// Server is the main API server that hosts HTTP and gRPC endpoints.
type Server struct {
	httpAddr string
	grpcAddr string
	log      *slog.Logger

	httpSrv *http.Server
	grpcSrv *grpc.Server

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewServer creates a server over set. An empty grpcAddr disables gRPC.
func NewServer(set *calendar.Set, httpAddr, grpcAddr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(log)))
	NewCalendarService(set).Register(grpcSrv)
	return &Server{
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		log:      log,
		httpSrv: &http.Server{
			Handler:           NewCalendarHandler(set, log).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcSrv: grpcSrv,
		stopped: make(chan struct{}),
	}
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until the
// context is cancelled, Shutdown is called or a listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpAddr, err)
	}
	var grpcLn net.Listener
	if s.grpcAddr != "" {
		if grpcLn, err = net.Listen("tcp", s.grpcAddr); err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", s.grpcAddr, err)
		}
	}
	return s.Serve(ctx, httpLn, grpcLn)
}

// Serve serves on already open listeners. grpcLn may be nil.
func (s *Server) Serve(ctx context.Context, httpLn, grpcLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("http listening", "addr", httpLn.Addr().String())
		if err := s.httpSrv.Serve(httpLn); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcLn != nil {
		g.Go(func() error {
			s.log.Info("grpc listening", "addr", grpcLn.Addr().String())
			if err := s.grpcSrv.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.stopped:
			return nil
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(sctx)
	})

	return g.Wait()
}

// Shutdown performs a graceful shutdown of the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopped)
		s.log.Info("shutting down")

		done := make(chan struct{})
		go func() {
			s.grpcSrv.GracefulStop()
			close(done)
		}()
		err = s.httpSrv.Shutdown(ctx)
		select {
		case <-done:
		case <-ctx.Done():
			s.grpcSrv.Stop()
		}
	})
	return err
}
