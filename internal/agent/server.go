package agent

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/firestige/otus-bench/internal/netconn"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// Server accepts TCP connections and runs one Session per connection,
// each rooted at its own subdirectory of baseOutdir, giving every
// connection its own isolated resource namespace and output directory.
type Server struct {
	listener  net.Listener
	baseDir   string
	log       *logrus.Entry
	sessionNo atomic.Uint32
}

// Listen binds addr and prepares baseOutdir (created if absent).
func Listen(addr, baseOutdir string, log *logrus.Entry) (*Server, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := os.MkdirAll(baseOutdir, 0o755); err != nil {
		return nil, fmt.Errorf("agent: create outdir: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("agent: listen %s: %w", addr, err)
	}
	return &Server{listener: ln, baseDir: baseOutdir, log: log}, nil
}

// Addr reports the bound listen address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed, running each
// session on its own goroutine. It returns the accept
// loop's terminal error (nil if Close caused it to stop).
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("agent: accept: %w", err)
		}

		n := s.sessionNo.Add(1)
		outdir := filepath.Join(s.baseDir, fmt.Sprintf("session-%04d", n))
		if err := os.MkdirAll(outdir, 0o755); err != nil {
			s.log.WithError(err).Error("failed to create session outdir; rejecting connection")
			conn.Close()
			continue
		}

		log := s.log.WithField("session", n).WithField("remote", conn.RemoteAddr().String())
		sess := NewSession(netconn.Accept(conn), outdir, log)
		go func() {
			log.Info("session started")
			sess.Run()
			log.Info("session closed")
		}()
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
