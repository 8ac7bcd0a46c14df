package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go_dir_sync/constants"
	"go_dir_sync/fileio"
	"go_dir_sync/logging"
)

type Server struct {
	folder     string
	bufferSize int
	factory    fileio.IOFactory
	log        *zap.Logger
	mptcp      bool

	mu    sync.Mutex
	conns map[string]net.Conn
	wg    sync.WaitGroup
}

type Option func(*Server)

// WithLogger sets the logger, connections get child loggers of it
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = logging.OrNop(log) }
}

// WithWriteBuffer sets the buffer size of destination file writers
func WithWriteBuffer(size int) Option {
	return func(s *Server) { s.bufferSize = size }
}

// WithIOFactory replaces the file writer factory
func WithIOFactory(factory fileio.IOFactory) Option {
	return func(s *Server) { s.factory = factory }
}

// WithMultipathTCP makes ListenAndServe accept Multipath TCP connections
func WithMultipathTCP(enabled bool) Option {
	return func(s *Server) { s.mptcp = enabled }
}

// New prepares a server storing backups below root, creating it if needed
func New(root string, opts ...Option) (*Server, error) {
	folder, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := fileio.EnsureDir(folder); err != nil {
		return nil, fmt.Errorf("invalid root folder: %w", err)
	}
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("invalid root folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid root folder: %s is not a directory", folder)
	}

	s := &Server{
		folder:     folder,
		bufferSize: constants.WRITE_BUFFER_SIZE,
		factory:    new(fileio.BufferedFactory),
		log:        zap.NewNop(),
		conns:      make(map[string]net.Conn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the absolute backup root
func (s *Server) Root() string {
	return s.folder
}

// ListenAndServe binds a listening socket on addr and serves it until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lc := new(net.ListenConfig)
	// Set MPTCP.
	lc.SetMultipathTCP(s.mptcp)
	l, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("could not bind listening socket on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l, each handled by its own goroutine.
// When ctx is done the listener and all open connections are closed and Serve
// returns once every handler has finished.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	s.log.Info("listening", zap.String("addr", l.Addr().String()), zap.String("root", s.folder))

	g.Go(func() error {
		<-ctx.Done()
		l.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				s.log.Warn("failed to establish incoming connection", zap.Error(err))
				continue
			}
			s.handle(ctx, conn)
		}
	})

	err := g.Wait()
	s.wg.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// handle registers conn and starts its worker
func (s *Server) handle(ctx context.Context, conn net.Conn) {
	id := uuid.NewString()
	log := s.log.With(zap.String("conn", id), zap.String("remote", conn.RemoteAddr().String()))

	if tcp, ok := conn.(*net.TCPConn); ok {
		// Acks are tiny, send them immediately.
		tcp.SetNoDelay(true)
	}

	s.mu.Lock()
	s.conns[id] = conn
	s.mu.Unlock()

	// Shutdown may have swept the registry before this connection was added.
	if ctx.Err() != nil {
		conn.Close()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.forget(id)
		defer conn.Close()

		log.Info("new connection")
		handler := NewHandler(s.folder, s.factory, s.bufferSize, log)
		if err := handler.Serve(conn); err != nil {
			log.Error("connection terminated", zap.Error(err))
			return
		}
		log.Info("client disconnected")
	}()
}

func (s *Server) forget(id string) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
}

// ActiveConnections returns the number of connections currently being served
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
