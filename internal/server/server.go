// Package server implements hellod: a minimal TCP server answering
// "GET / HTTP/1.1" with a hello page. Every accepted connection is handled
// as one job on a jobpool.Pool.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ygrebnov/jobpool"
	"github.com/ygrebnov/jobpool/internal/config"
)

const (
	statusOK       = "HTTP/1.1 200 OK"
	statusNotFound = "HTTP/1.1 404 NOT FOUND"

	requestRoot  = "GET / HTTP/1.1"
	requestSleep = "GET /sleep HTTP/1.1"

	// maxRequestLine bounds how much of a request is read.
	maxRequestLine = 1024
)

// Submitter is the part of *jobpool.Pool the server depends on.
type Submitter interface {
	Submit(job jobpool.Job) error
}

// Server accepts TCP connections and answers each one on a pool worker.
type Server struct {
	cfg   config.ServerConfig
	pool  Submitter
	log   log.FieldLogger
	pages *pages

	accepted atomic.Int64
	served   atomic.Int64
}

// New creates a server that hands connections to pool.
func New(cfg config.ServerConfig, pool Submitter, logger log.FieldLogger) *Server {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Server{
		cfg:   cfg,
		pool:  pool,
		log:   logger.WithField("component", "server"),
		pages: newPages(cfg.Root),
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln and submits one job per connection.
// It takes ownership of ln and returns nil when ctx is done, when
// MaxConnections connections have been accepted, or when the pool stops
// accepting jobs. Connections already submitted are still answered by the pool.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.log.Infof("running server on %s", ln.Addr())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("server stopped")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		n := s.accepted.Add(1)

		if err := s.pool.Submit(func() { s.handle(conn) }); err != nil {
			_ = conn.Close()
			if errors.Is(err, jobpool.ErrPoolClosed) {
				s.log.Info("pool is shutting down, server stopped")
				return nil
			}
			return fmt.Errorf("failed to submit connection: %w", err)
		}

		if limit := s.cfg.MaxConnections; limit > 0 && n >= int64(limit) {
			s.log.Infof("accepted %d connection(s), server stopped", n)
			return nil
		}
	}
}

// Accepted returns the number of accepted connections.
func (s *Server) Accepted() int64 { return s.accepted.Load() }

// Served returns the number of connections that received a response.
func (s *Server) Served() int64 { return s.served.Load() }

// handle answers a single connection. It runs on a pool worker.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	logger := s.log.WithField("remote", conn.RemoteAddr().String())

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	line, err := bufio.NewReader(io.LimitReader(conn, maxRequestLine)).ReadString('\n')
	if err != nil && line == "" {
		logger.WithError(err).Debug("failed to read request")
		return
	}

	var status, page string
	if !strings.HasSuffix(line, "\n") && len(line) >= maxRequestLine {
		logger.Debugf("request line longer than %d bytes", maxRequestLine)
		status, page = statusNotFound, pageNotFound
	} else {
		line = strings.TrimRight(line, "\r\n")
		status, page = s.route(line)
	}

	body := s.pages.get(page)
	resp := fmt.Sprintf("%s\r\nContent-Length: %d\r\n\r\n%s", status, len(body), body)
	if _, err := conn.Write([]byte(resp)); err != nil {
		logger.WithError(err).Warn("failed to write response")
		return
	}
	s.served.Add(1)
	logger.WithField("status", status).Debugf("answered %q", line)
}

func (s *Server) route(requestLine string) (string, string) {
	switch requestLine {
	case requestRoot:
		return statusOK, pageHello
	case requestSleep:
		time.Sleep(s.cfg.SleepDelay)
		return statusOK, pageHello
	default:
		return statusNotFound, pageNotFound
	}
}
