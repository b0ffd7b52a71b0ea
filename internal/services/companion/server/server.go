// Package server boots the companion service: storage, engine, auth and the
// JSON API wired together behind one listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/regenmon/internal/random"
	companionhttp "github.com/louisbranch/regenmon/internal/services/companion/api/http"
	"github.com/louisbranch/regenmon/internal/services/companion/app"
	storagesqlite "github.com/louisbranch/regenmon/internal/services/companion/storage/sqlite"
)

const serverShutdownTimeout = 10 * time.Second

// Server hosts the companion engine behind its JSON API.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *storagesqlite.Store
}

// New creates a configured companion server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured companion server listening on the provided
// address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openStateStore()
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	auth, err := companionhttp.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	rng, err := random.NewLocked()
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("seed rng: %w", err)
	}
	service := app.NewService(app.Stores{
		Users:      store,
		Companions: store,
		Actions:    store,
	}, rng)

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           companionhttp.NewHandler(service, auth),
			ReadHeaderTimeout: 5 * time.Second,
		},
		store: store,
	}, nil
}

// Addr returns the listener address for the companion server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a companion server until the context ends.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a companion server on addr until the context
// ends.
func RunWithAddr(ctx context.Context, addr string) error {
	server, err := NewWithAddr(addr)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the companion server and blocks until it stops or the context
// ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("companion server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("companion server shutdown: %v", err)
		}
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func openStateStore() (*storagesqlite.Store, error) {
	path := strings.TrimSpace(os.Getenv("REGENMON_COMPANION_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "companion.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := storagesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close companion store: %v", err)
	}
}
